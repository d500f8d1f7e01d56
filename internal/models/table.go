package models

// Table statuses.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

// Position is a table's placement on the floor plan.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Table is a physical table on a floor. Its occupied status is derived from
// the open orders bound to it; the server value is authoritative but each
// client recomputes the same rule locally (see the tables package).
type Table struct {
	ID       string   `json:"id"`
	Number   int      `json:"number"`
	FloorID  string   `json:"floorId"`
	Capacity int      `json:"capacity"`
	Shape    string   `json:"shape"`
	Status   string   `json:"status"`
	Position Position `json:"position"`
}
