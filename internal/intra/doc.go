// Package intra is the client for the 42 intranet API.
//
// Every request waits on the shared rate limiter, carries the signed-in
// user's bearer token and is retried according to its failure class (see
// Client.Do). Failures surface as *APIError, matched with errors.Is against
// ErrAuthExpired, ErrRateLimited and ErrServer, or as *NetworkError.
//
// On top of the raw client sit the dashboard projections: Student (main
// cursus 21), Pooler (piscine cursus 9) and their Stats.
package intra
