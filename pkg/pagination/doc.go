// Package pagination walks page/per_page collection endpoints sequentially.
//
// GitHub collection endpoints do not report a total count up front, so the
// walk is driven by the first empty page rather than by a page count. One
// request is in flight at a time and page N+1 is requested only after page N
// has been decoded.
//
// Example usage:
//
//	cfg := pagination.DefaultConfig()
//	repos, err := pagination.Collect(ctx, githubClient, "/user/starred", cfg, decodeRepos)
//
// Collect:
//   - Starts at Config.StartPage (default 1)
//   - Stops on the first page that decodes to zero items
//   - Fails fast on the first fetch or decode error, discarding earlier pages
//   - Checks context cancellation before every request
package pagination
