package stackdepot

// Version information for the stack depot library.
const (
	// Version is the current version of the stack depot.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides static information about the stack depot build.
type Info struct {
	// Version is the library version string.
	Version string

	// HashAlgorithm is the content hash used for stack identifiers.
	HashAlgorithm string

	// MaxFrames is the hard upper bound on frames per capture.
	MaxFrames int
}

// GetInfo returns information about the stack depot library.
//
// Example:
//
//	info := stackdepot.GetInfo()
//	fmt.Printf("stackdepot %s (%s)\n", info.Version, info.HashAlgorithm)
func GetInfo() Info {
	return Info{
		Version:       Version,
		HashAlgorithm: "xxHash64",
		MaxFrames:     MaxFrames,
	}
}
