package request

type CreateLotRequest struct {
	AccountID       string  `json:"accountId"`
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	AcquisitionDate string  `json:"acquisitionDate"`
	CostBasis       float64 `json:"costBasis"`
}

type RecordSaleRequest struct {
	AccountID string   `json:"accountId"`
	Symbol    string   `json:"symbol"`
	Quantity  float64  `json:"quantity"`
	Method    string   `json:"method"`
	SaleDate  string   `json:"saleDate"`
	SalePrice float64  `json:"salePrice"`
	LotIDs    []string `json:"lotIds,omitempty"`
}

type ApplySplitRequest struct {
	SecurityID string  `json:"securityId"`
	Ratio      float64 `json:"ratio"`
	Date       string  `json:"date"`
}
