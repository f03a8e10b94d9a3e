// Package auth verifies bearer credentials on inference routes.
//
// Two schemes are supported and may be combined:
//
//   - JWTVerifier: HMAC-signed tokens (HS256/384/512) with issuer/audience checks
//   - APIKeyVerifier: static keys stored as bcrypt hashes
//
// Configuration:
//
//	auth:
//	  enabled: true
//	  jwt:
//	    secret: "change-me"
//	    issuer: "endpoints"
//	  api_keys:
//	    - name: "batch-jobs"
//	      hash: "$2a$10$..."
//
// The server's Auth middleware calls Verifier.Verify and stores the
// Principal in the request context.
package auth
