package recall

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rushteam/cinesuggest/catalog"
)

const (
	snapshotVersion   = 1
	snapshotKeyPrefix = "cinesuggest:mf:"
)

// mfSnapshot 是 MF 物品隐向量的持久化格式（msgpack）。
type mfSnapshot struct {
	Version int       `msgpack:"version"`
	Factors int       `msgpack:"factors"`
	ItemIDs []int64   `msgpack:"item_ids"`
	Q       []float64 `msgpack:"q"`
}

// snapshotKey 由训练配置与目录内容决定；两者任一变化都会得到新的 key。
func snapshotKey(cat *catalog.Catalog, cfg MFConfig) string {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	put(snapshotVersion)
	put(uint64(cfg.Factors))
	put(uint64(cfg.Epochs))
	put(math.Float64bits(cfg.LearningRate))
	put(math.Float64bits(cfg.Regularization))
	put(math.Float64bits(cfg.InitStdDev))
	put(cfg.Seed)
	put(uint64(cat.Len()))
	put(uint64(cat.NumRatings()))
	for r := range cat.Ratings() {
		put(uint64(r.UserID))
		put(uint64(r.MovieID))
		put(math.Float64bits(r.Score))
	}
	return fmt.Sprintf("%s%016x", snapshotKeyPrefix, h.Sum64())
}

func encodeSnapshot(cat *catalog.Catalog, cfg MFConfig, q []float64) ([]byte, error) {
	ids := make([]int64, 0, cat.Len())
	for m := range cat.AllMovies() {
		ids = append(ids, m.ID)
	}
	return msgpack.Marshal(&mfSnapshot{
		Version: snapshotVersion,
		Factors: cfg.Factors,
		ItemIDs: ids,
		Q:       q,
	})
}

// decodeSnapshot 解码快照并校验与当前目录一致，返回物品隐向量。
func decodeSnapshot(cat *catalog.Catalog, cfg MFConfig, data []byte) ([]float64, error) {
	var snap mfSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode mf snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("mf snapshot version %d, want %d", snap.Version, snapshotVersion)
	}
	if snap.Factors != cfg.Factors {
		return nil, fmt.Errorf("mf snapshot factors %d, want %d", snap.Factors, cfg.Factors)
	}
	if len(snap.ItemIDs) != cat.Len() || len(snap.Q) != cat.Len()*cfg.Factors {
		return nil, fmt.Errorf("mf snapshot size mismatch: %d items", len(snap.ItemIDs))
	}
	for pos, id := range snap.ItemIDs {
		if cat.MovieAt(pos).ID != id {
			return nil, fmt.Errorf("mf snapshot item %d at position %d, want %d", id, pos, cat.MovieAt(pos).ID)
		}
	}
	return snap.Q, nil
}
