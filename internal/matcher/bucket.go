package matcher

import (
	"github.com/iammattholland/transfermatch/internal/models"
)

// amountIndex groups inflow candidates by quantized absolute amount so
// each outflow only scores against inflows of comparable size.
type amountIndex struct {
	widthCents int64
	buckets    map[int64][]*models.Transaction
}

func newAmountIndex(widthCents int64) *amountIndex {
	return &amountIndex{
		widthCents: widthCents,
		buckets:    make(map[int64][]*models.Transaction),
	}
}

// key quantizes an absolute amount in cents to its bucket key by
// rounded division.
func (idx *amountIndex) key(absCents int64) int64 {
	return (absCents + idx.widthCents/2) / idx.widthCents
}

func (idx *amountIndex) add(tx *models.Transaction) {
	k := idx.key(tx.AmountCents())
	idx.buckets[k] = append(idx.buckets[k], tx)
}

// candidates returns the inflows in the outflow's bucket and both
// adjacent buckets. Probing neighbors keeps pairs that straddle a
// bucket boundary but still sit within the amount tolerance window.
func (idx *amountIndex) candidates(absCents int64) []*models.Transaction {
	k := idx.key(absCents)

	var out []*models.Transaction
	for _, probe := range [3]int64{k - 1, k, k + 1} {
		out = append(out, idx.buckets[probe]...)
	}
	return out
}
