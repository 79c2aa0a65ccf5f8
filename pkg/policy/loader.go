package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vantagelabs/vantage/pkg/domain"
)

// knownKeys are the recognized top-level document keys. Anything else
// is ignored with a warning so policy documents can evolve forward.
var knownKeys = map[string]bool{
	"objectives":       true,
	"thresholds":       true,
	"allowed_actions":  true,
	"rules":            true,
	"ranking":          true,
	"confidence_bands": true,
	"extraction":       true,
}

// requiredKeys must be present or the document is rejected at load.
var requiredKeys = []string{"objectives", "allowed_actions", "rules"}

// Load parses and validates a policy document. Unknown top-level keys
// produce warnings, missing required keys produce a SchemaError before
// any pipeline run can see the policy.
func Load(data []byte, logger *zap.Logger) (*Policy, []domain.Diagnostic, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, domain.WrapSchemaError("", "policy document is not valid YAML", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil, domain.NewSchemaError("", "policy document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, domain.NewSchemaError("", "policy document must be a mapping")
	}

	present := make(map[string]bool)
	var diags []domain.Diagnostic
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		present[key] = true
		if !knownKeys[key] {
			logger.Warn("Ignoring unknown policy key", zap.String("key", key))
			diags = append(diags, domain.Diagnostic{
				Code:      domain.DiagPolicyWarning,
				Component: "policy",
				Subject:   key,
				Message:   fmt.Sprintf("unknown key %q ignored", key),
			})
		}
	}
	for _, key := range requiredKeys {
		if !present[key] {
			return nil, nil, domain.NewSchemaError(key, "required key is missing")
		}
	}

	pol := &Policy{}
	if err := root.Decode(pol); err != nil {
		return nil, nil, domain.WrapSchemaError("", "policy document has invalid field types", err)
	}

	pol.applyDefaults()
	if err := pol.validate(); err != nil {
		return nil, nil, err
	}

	sum := sha256.Sum256(data)
	pol.DocHash = hex.EncodeToString(sum[:])

	logger.Info("Policy loaded",
		zap.Int("objectives", len(pol.Objectives)),
		zap.Int("thresholds", len(pol.Thresholds)),
		zap.Int("rules", len(pol.Rules)),
		zap.Strings("allowed_actions", pol.AllowedActions))

	return pol, diags, nil
}
