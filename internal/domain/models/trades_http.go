package models

// Requests for the read-only trading API. Defined in domain for consistency and reuse.

type RecentMovementsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Token string `query:"token" json:"token"`
}

type HotPairsRequest struct {
	MinCount int `query:"min_count" json:"min_count" default:"3" validate:"gte=1,lte=100"`
}
