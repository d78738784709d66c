// Package github implements the Git hosting client used to load corpus
// snapshots pinned to a commit.
//
// Two access paths are combined:
//   - raw content downloads (raw.githubusercontent.com) for fetching
//     individual TEI files at a commit, and
//   - the GitHub REST API for commit resolution, tree listings of the
//     data folder, and the corpus.xml blob in the repository root.
//
// Requests are optionally authenticated with a personal access token
// taken from the GITHUB_TOKEN environment variable, which raises the
// API rate limit from 60 to 5000 requests per hour. The remaining rate
// limit is surfaced through the client's log callback when it runs low.
//
// Like the DraCor API client, failure handling is a single synchronous
// attempt per request: any non-success status becomes a *RequestError
// carrying the status code.
package github
