// Package cli holds the pieces shared by scoreboard's commands.
//
// Errors coming out of the services are translated into a small set of
// types that carry guidance for the user and decide the exit code:
//   - AuthRequiredError: nothing is stored, run `scoreboard auth login`
//   - AuthExpiredError: the credential can no longer be used
//   - AuthFailedError: a sign-in attempt failed
//   - ConnectionError: the intranet could not be reached (TLS, DNS,
//     timeout or network)
//
// Output flags (--output, --no-headers, --quiet) are registered the same
// way on every listing command and produce a formatting.Formatter. Long
// requests show a spinner on stderr unless --quiet is set.
package cli
