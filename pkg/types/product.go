package types

// Variant is a purchasable size of a product with its own stock. Prices are in paise.
type Variant struct {
	Size           string `json:"size" firestore:"size"`
	Pieces         int    `json:"pieces" firestore:"pieces"`
	UnitPricePaise int64  `json:"unitPricePaise" firestore:"unitPricePaise"`
	Stock          int    `json:"stock" firestore:"stock"`
}

// Variants is stored as a JSON document column.
type Variants []Variant

// Find returns the index of the variant with the given size, or -1.
func (v Variants) Find(size string) int {
	for i := range v {
		if v[i].Size == size {
			return i
		}
	}
	return -1
}

// Clone returns a copy that can be mutated without touching v.
func (v Variants) Clone() Variants {
	if v == nil {
		return nil
	}
	out := make(Variants, len(v))
	copy(out, v)
	return out
}

// StringList is stored as a JSON array column so it works on every SQL driver.
type StringList []string
