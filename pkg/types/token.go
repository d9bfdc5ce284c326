package types

// TokenResponse represents the JSON response from a registry token endpoint.
// It contains the bearer token used to authenticate manifest and blob requests.
type TokenResponse struct {
	// Token is the bearer credential issued for the requested scope.
	Token string `json:"token"`
}
