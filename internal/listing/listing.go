// Package listing defines the site-index domain records shared by the
// store, the HTTP layer and the link checker.
package listing

import "time"

// Partition identifies the organizational unit a listing belongs to.
type Partition string

// The district's fixed set of partitions.
const (
	PartitionCanada   Partition = "CAN" // Cañada College
	PartitionSanMateo Partition = "CSM" // College of San Mateo
	PartitionSkyline  Partition = "SKY" // Skyline College
	PartitionDistrict Partition = "DO"  // District Office
)

// Partitions returns the fixed enumeration in display order.
func Partitions() []Partition {
	return []Partition{PartitionCanada, PartitionSanMateo, PartitionSkyline, PartitionDistrict}
}

func (p Partition) Valid() bool {
	switch p {
	case PartitionCanada, PartitionSanMateo, PartitionSkyline, PartitionDistrict:
		return true
	}
	return false
}

// Listing is one site-index record. ID is store-assigned.
type Listing struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"` // single uppercase letter
	URL       string    `json:"url"`
	Partition Partition `json:"partition"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidCategory reports whether c is a single uppercase ASCII letter.
func ValidCategory(c string) bool {
	return len(c) == 1 && c[0] >= 'A' && c[0] <= 'Z'
}

// Counts is one analytics row: how many listings share a dimension value.
type Counts struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
