package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CacheKey derives a stable key from the inputs and parameters of req so
// provider.WithCache can serve repeated requests. model namespaces keys
// per backend model.
func CacheKey(model string) func(Request) (string, bool) {
	return func(req Request) (string, bool) {
		data, err := json.Marshal(req)
		if err != nil {
			return "", false
		}
		sum := sha256.Sum256(data)
		return "embedding:" + model + ":" + hex.EncodeToString(sum[:]), true
	}
}
