package service

import (
	"context"
	"encoding/json"
)

// Response is the uniform envelope returned by Dispatch.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// Dispatch routes a method name plus params JSON to the matching operation and
// returns the encoded response envelope.
func (s *Service) Dispatch(ctx context.Context, method string, paramsJson string) string {
	var result any
	var err error

	switch method {
	case "system.info":
		result = s.SystemInfo()
	case "memo.generate":
		result, err = s.GenerateMemo(ctx, paramsJson)
	case "memo.generate.enhanced":
		result, err = s.GenerateEnhancedMemo(ctx, paramsJson)
	case "memo.list":
		result, err = s.ListMemos(ctx, paramsJson)
	case "memo.get":
		result, err = s.GetMemo(ctx, paramsJson)
	case "debate.research":
		result, err = s.ConductResearchDebate(ctx, paramsJson)
	case "debate.risk":
		result, err = s.ConductRiskDebate(ctx, paramsJson)
	case "memory.similar":
		result, err = s.FindSimilar(ctx, paramsJson)
	case "memory.outcome":
		result, err = s.AttachOutcome(ctx, paramsJson)
	case "memory.insights":
		result, err = s.MemoryInsights(ctx, paramsJson)
	case "memory.analytics":
		result, err = s.PerformanceAnalytics(ctx, paramsJson)
	case "memory.learning":
		result, err = s.LearningInsights(ctx)
	default:
		return jsonResp(404, "Method not found", nil)
	}
	if err != nil {
		return jsonResp(500, err.Error(), nil)
	}
	return jsonResp(200, "Ok", result)
}

func jsonResp(code int, msg string, data any) string {
	resp := Response{Code: code, Msg: msg, Data: data}
	b, _ := json.Marshal(resp)
	return string(b)
}
