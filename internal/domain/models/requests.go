package models

// Requests for analytics HTTP endpoints. Defined in domain for consistency and reuse.

type TrendDetailRequest struct {
	Keyword string `param:"keyword" json:"keyword" validate:"required"`
	Days    int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=365"`
}

type ForecastRequest struct {
	Keyword    string  `param:"keyword" json:"keyword" validate:"required"`
	Days       int     `query:"days" json:"days" default:"14" validate:"gte=1,lte=30"`
	Confidence float64 `query:"confidence" json:"confidence" default:"0.95" validate:"gte=0.5,lte=0.99"`
}

type HistoryRequest struct {
	Keyword string `param:"keyword" json:"keyword" validate:"required"`
	Days    int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=90"`
}

type OpportunitiesRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=50"`
}

type SignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=100"`
}

type MarketHistoryRequest struct {
	Days int `query:"days" json:"days" default:"7" validate:"gte=1,lte=90"`
}

type IntelligenceRequest struct {
	Keyword string `param:"keyword" json:"keyword" validate:"required"`
	Days    int    `query:"days" json:"days" default:"14" validate:"gte=1,lte=30"`
}
