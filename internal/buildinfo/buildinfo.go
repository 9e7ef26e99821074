// Package buildinfo carries the routepilot build identity, stamped at link
// time via -ldflags and surfaced on /debug/info.
package buildinfo

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info returns the stamped values for debug output.
func Info() map[string]string {
    return map[string]string{
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
}
