package request

type SnapshotDetectRequest struct {
	FromSnapshotID string `json:"fromSnapshotId"`
	ToSnapshotID   string `json:"toSnapshotId"`
}
