package common

// AccessTokenHeaderName is the HTTP header / gRPC metadata key carrying the
// bearer access token.
const AccessTokenHeaderName = "authorization"

// BearerPrefix precedes the access token in AccessTokenHeaderName.
const BearerPrefix = "Bearer "

// RefreshTokenCarrierName names the cookie and the gRPC metadata key that
// carry the raw refresh secret.
const RefreshTokenCarrierName = "refresh_token"
