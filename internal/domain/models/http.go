package models

// Requests for the HTTP API. Defaults are applied by creasty/defaults before
// validation.

type StrategyPatchRequest struct {
	BuyRSIThreshold  *float64  `json:"buy_rsi_threshold" validate:"omitempty"`
	SellRSIThreshold *float64  `json:"sell_rsi_threshold" validate:"omitempty"`
	SentimentBias    *int      `json:"sentiment_bias" validate:"omitempty,oneof=0 1"`
	ProfitRSIRange   *RSIRange `json:"profit_rsi_range"`
}

func (r StrategyPatchRequest) Patch() StrategyPatch {
	return StrategyPatch{
		BuyRSIThreshold:  r.BuyRSIThreshold,
		SellRSIThreshold: r.SellRSIThreshold,
		SentimentBias:    r.SentimentBias,
		ProfitRSIRange:   r.ProfitRSIRange,
	}
}

type CloneRunRequest struct {
	Apply bool `query:"apply" json:"apply"`
}

type LogRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type PatternsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Source string `query:"source" json:"source" default:"memory" validate:"oneof=memory archive"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

// EvaluateRequest runs one dry cycle without touching cooldowns or the
// wallet.
type EvaluateRequest struct {
	Symbol    string           `json:"symbol" validate:"required"`
	Price     float64          `json:"price" validate:"gt=0"`
	Volume    float64          `json:"volume" validate:"gte=0"`
	Change24h float64          `json:"change_24h"`
	RSI       float64          `json:"rsi" validate:"gte=0,lte=100"`
	Sentiment SentimentSummary `json:"sentiment"`
	Global    SentimentSummary `json:"global_sentiment"`
	Cash      float64          `json:"cash" default:"1000" validate:"gte=0"`
	Holding   float64          `json:"holding" validate:"gte=0"`
	SkipGate  bool             `json:"skip_gate"`
}

type EvaluateResponse struct {
	Allowed    bool       `json:"allowed"`
	GateReason string     `json:"gate_reason,omitempty"`
	Prediction Prediction `json:"prediction"`
	Decision   Decision   `json:"decision"`
}

type StrategyResponse struct {
	Strategy    StrategyConfig     `json:"strategy"`
	Personality PersonalityProfile `json:"personality"`
}
