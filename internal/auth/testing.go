package auth

import "context"

// SetClaimsForTest injects player claims into the context for testing purposes.
func SetClaimsForTest(ctx context.Context, playerID, matchID string) context.Context {
	return context.WithValue(ctx, claimsKey, &Claims{PlayerID: playerID, MatchID: matchID})
}
