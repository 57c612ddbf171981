package testutil

// MockQuotesClient is a mock implementation of quotes.Client for testing.
// It returns a predefined closing price instead of making actual API calls.
type MockQuotesClient struct {
	// Price is the closing price to return
	Price float64
	// Err is the error to return instead of a price
	Err error
	// QueryCount tracks how many times LatestClose was called
	QueryCount int
}

// NewMockQuotesClient creates a mock quotes client returning $100.
func NewMockQuotesClient() *MockQuotesClient {
	return &MockQuotesClient{Price: 100}
}

// LatestClose returns the configured price or error.
func (m *MockQuotesClient) LatestClose(_ string) (float64, error) {
	m.QueryCount++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

// WithPrice configures the mock to return the specified price.
func (m *MockQuotesClient) WithPrice(price float64) *MockQuotesClient {
	m.Price = price
	return m
}

// WithError configures the mock to return the specified error.
func (m *MockQuotesClient) WithError(err error) *MockQuotesClient {
	m.Err = err
	return m
}
