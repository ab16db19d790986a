// Normalization bridges whatever shape a basket worker returned into
// the canonical `sources.<provider>.data` form. spec.md §9's Open
// Question 1 notes two coexisting schemas exist in the legacy source; a
// newly written aggregator normalizes both into the canonical `sources`
// form only.
package aggregator

import (
	"encoding/json"
	"time"

	"github.com/vn6295337/Researcher-Agent/internal/model"
)

// legacyShape is the flat `{metrics: {...}}` schema some older provider
// adapters still emit.
type legacyShape struct {
	Metrics map[string]any `json:"metrics"`
	Source  string         `json:"source"`
	AsOf    string         `json:"as_of"`
	Error   string         `json:"error"`
}

// Normalize decodes a worker's raw JSON payload into a canonical
// BasketResult, bridging the legacy flat-metrics schema when present.
func Normalize(basketID, group string, raw json.RawMessage) (model.BasketResult, error) {
	var canonical model.BasketResult
	if err := json.Unmarshal(raw, &canonical); err == nil && len(canonical.Sources) > 0 {
		if canonical.Group == "" {
			canonical.Group = group
		}
		if canonical.Source == "" {
			canonical.Source = basketID
		}
		return canonical, nil
	}

	var legacy legacyShape
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy.Metrics) > 0 {
		source := legacy.Source
		if source == "" {
			source = basketID
		}
		asOf := legacy.AsOf
		if asOf == "" {
			asOf = time.Now().UTC().Format(time.RFC3339)
		}
		return model.BasketResult{
			Group:  group,
			Source: basketID,
			AsOf:   asOf,
			Error:  legacy.Error,
			Sources: map[string]model.SourceEnvelope{
				source: {Source: source, AsOf: asOf, Data: legacy.Metrics},
			},
		}, nil
	}

	// Neither shape matched: surface a ParseError-flavored basket result
	// rather than propagating a hard error, so a malformed worker payload
	// still lets the always-respond invariant hold one level up.
	var probe map[string]any
	_ = json.Unmarshal(raw, &probe)
	errMsg, _ := probe["error"].(string)
	if errMsg == "" {
		errMsg = "could not normalize worker payload"
	}
	return model.BasketResult{Group: group, Source: basketID, Error: errMsg}, nil
}
