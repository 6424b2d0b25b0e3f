package worker

// IngestTask asks a worker to run the ingestion pipeline for one item.
type IngestTask struct {
	ItemID        string `json:"item_id"`
	CorrelationID string `json:"correlation_id"`
}
