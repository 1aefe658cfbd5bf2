package processor

// Result summarises one ingest run
type Result struct {
	Total      int64 `json:"total"`
	Inserted   int64 `json:"inserted"`
	Refreshed  int64 `json:"refreshed"`  // Duplicates whose crawler fields were rewritten
	Duplicates int64 `json:"duplicates"` // Same id and url as a stored or earlier record, skipped
	Collisions int64 `json:"collisions"` // Same id as a different url
	Failed     int64 `json:"failed"`
}
