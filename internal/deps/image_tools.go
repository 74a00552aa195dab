package deps

import "pihla/internal/config"

// ImageTools lists the post-processors named in the [tools] section. Both are
// optional: without them JPEGs stay baseline and PNGs are only recompressed.
func ImageTools(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "jpegtran",
			Command:     cfg.Tools.Jpegtran,
			Description: "Progressive JPEG re-encode",
			Optional:    true,
		},
		{
			Name:        "pngquant",
			Command:     cfg.Tools.Pngquant,
			Description: "Lossy PNG palette quantization",
			Optional:    true,
		},
	}
}
