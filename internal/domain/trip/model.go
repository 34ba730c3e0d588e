package trip

// Collection is the store path all trip records live under.
const Collection = "trips"

// TypeUpcoming is the only record type the client creates.
const TypeUpcoming = "upcoming"

// Field names of a trip node in the store.
const (
	FieldName      = "trip_name"
	FieldType      = "trip_type"
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
)

// Record is one trip. Key is the creation time in milliseconds since the
// epoch, as a decimal string.
type Record struct {
	Key       string `json:"key"`
	Name      string `json:"trip_name"`
	Type      string `json:"trip_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// RecordPath returns the store path of the record with key.
func RecordPath(key string) string {
	return Collection + "/" + key
}

// Fields returns the store representation of r, without the key.
func (r Record) Fields() map[string]string {
	return map[string]string{
		FieldName:      r.Name,
		FieldType:      r.Type,
		FieldStartDate: r.StartDate,
		FieldEndDate:   r.EndDate,
	}
}

// FromChild builds a Record from a snapshot child. Missing fields read as "".
func FromChild(c Child) Record {
	return Record{
		Key:       c.Key,
		Name:      c.Fields[FieldName],
		Type:      c.Fields[FieldType],
		StartDate: c.Fields[FieldStartDate],
		EndDate:   c.Fields[FieldEndDate],
	}
}

// Child is one node under a snapshot path.
type Child struct {
	Key    string
	Fields map[string]string
}

// Snapshot is a one-time read of a path, children ascending by key.
type Snapshot struct {
	Path     string
	Children []Child
}
