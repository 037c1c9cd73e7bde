package version

// Default values are overridden at build time via -ldflags.
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

// Info represents the running build metadata.
type Info struct {
	BuildVersion string `json:"build_version"`
	BuiltAt      string `json:"built_at"`
}

func Get() Info {
	return Info{
		BuildVersion: buildVersion,
		BuiltAt:      builtAt,
	}
}
