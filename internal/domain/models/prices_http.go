package models

// Requests for the price history HTTP endpoints.

type PricesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type LatestPriceRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,ticker"`
}
