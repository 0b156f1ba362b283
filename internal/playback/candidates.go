package playback

import "fmt"

type Candidate struct {
	Name     string
	Args     []string // placed before the file path
	NeedsWAV bool     // convert to WAV first, remove the copy afterwards
	WAVOnly  bool     // skip unless the input already is WAV
	script   func(path string) []string
}

// Command returns the argument list for playing path.
func (c Candidate) Command(path string) []string {
	if c.script != nil {
		return c.script(path)
	}
	return append(append([]string(nil), c.Args...), path)
}

// Candidates lists players for goos in the order they are tried.
func Candidates(goos string) ([]Candidate, error) {
	switch goos {
	case "windows":
		return []Candidate{{
			Name:     "powershell",
			NeedsWAV: true,
			script: func(path string) []string {
				return []string{"-c", fmt.Sprintf(`(New-Object Media.SoundPlayer "%s").PlaySync();`, path)}
			},
		}}, nil
	case "darwin":
		return []Candidate{{Name: "afplay"}}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return []Candidate{
			{Name: "aplay", Args: []string{"-q"}, WAVOnly: true},
			{Name: "paplay"},
			{Name: "mpg123", Args: []string{"-q"}},
			{Name: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}
