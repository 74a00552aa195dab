package migrate

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"pihla/internal/config"
)

// Target names the root a relocated file lands in.
type Target string

const (
	TargetAssets  Target = "assets"
	TargetWeb     Target = "web"
	TargetUploads Target = "uploads"
)

// Relocation copies one legacy flat asset to its new home.
type Relocation struct {
	Name   string
	Target Target
	Rel    string
}

// Replacement is one literal from→to substitution applied to content files.
type Replacement struct {
	From string
	To   string
}

// Plan is the static description of the layout migration.
type Plan struct {
	// Folders are created when absent.
	Folders []string
	// Relocations copy files from the legacy flat assets folder.
	Relocations []Relocation
	// OriginalsDir holds legacy high-resolution sources.
	OriginalsDir string
	// CarouselOriginals are originals that always belong to the carousel.
	CarouselOriginals []string
	// CarouselPrefix marks carousel originals by filename.
	CarouselPrefix string
	// SiteAssets are infrastructure images that are never treated as uploads.
	SiteAssets []string
	// OriginalsDest is the upload subfolder originals are copied to.
	OriginalsDest string
	// Subfolders are legacy folders copied wholesale into the web tree.
	Subfolders []string
	// Replacements are applied to every content JSON file, in order.
	Replacements []Replacement
}

var siteAssets = []string{
	"pihla-folk-logo.png",
	"pihla-folk-text-logo.png",
	"pihla-folk-icon.png",
	"wallpaper-home-bg.jpg",
	"wallpaper-bg.jpg",
	"wallpaper-productions-bg.jpg",
	"pattern-bg.jpg",
	"pattern-background.jpg",
	"hero-bg-pihlafolk.jpg",
}

var carouselImages = []string{
	"carousel-1.jpg",
	"carousel-2.jpg",
	"carousel-3.jpg",
	"carousel-4.jpg",
	"carousel-5.jpg",
	"ilona-korhonen-ensemble-piot.jpg",
	"mari-etnogaala.jpg",
	"mari-jani-snellman.jpg",
	"pol00820.jpg",
}

// DefaultPlan returns the site's migration tables with folders resolved
// against cfg.
func DefaultPlan(cfg *config.Config) Plan {
	relocations := make([]Relocation, 0, len(siteAssets)+len(carouselImages))
	for _, name := range siteAssets {
		relocations = append(relocations, Relocation{Name: name, Target: TargetAssets, Rel: name})
	}
	for _, name := range carouselImages {
		relocations = append(relocations, Relocation{Name: name, Target: TargetWeb, Rel: "media/carousel/" + name})
	}

	return Plan{
		Folders: []string{
			cfg.Paths.DownloadDir,
			cfg.Paths.UploadDir,
			filepath.Join(cfg.Paths.WebDir, "media", "carousel"),
			filepath.Join(cfg.Paths.WebDir, "artists"),
			filepath.Join(cfg.Paths.WebDir, "productions"),
			filepath.Join(cfg.Paths.WebDir, "home"),
		},
		Relocations:  relocations,
		OriginalsDir: filepath.Join(cfg.Paths.AssetsDir, "originals"),
		CarouselOriginals: []string{
			"ilona-korhonen-ensemble-piot.jpg",
			"mari-etnogaala.jpg",
			"mari-jani-snellman.jpg",
			"pol00820.jpg",
		},
		CarouselPrefix: "carousel-",
		SiteAssets:     append([]string(nil), siteAssets...),
		OriginalsDest:  "media/carousel",
		Subfolders:     []string{"artists", "productions"},
		Replacements: []Replacement{
			{From: "/assets/carousel-", To: "/images/web/media/carousel/carousel-"},
			{From: "/assets/ilona-korhonen-ensemble-piot.jpg", To: "/images/web/media/carousel/ilona-korhonen-ensemble-piot.jpg"},
			{From: "/assets/mari-etnogaala.jpg", To: "/images/web/media/carousel/mari-etnogaala.jpg"},
			{From: "/assets/mari-jani-snellman.jpg", To: "/images/web/media/carousel/mari-jani-snellman.jpg"},
			{From: "/assets/mari-paakkonen.jpg", To: "/images/web/media/carousel/mari-paakkonen.jpg"},
			{From: "/assets/pol00820.jpg", To: "/images/web/media/carousel/pol00820.jpg"},
			{From: "/assets/artists/", To: "/images/web/artists/"},
			{From: "/assets/productions/", To: "/images/web/productions/"},
		},
	}
}

// ClassifyOriginal returns the upload subfolder an original belongs to, or
// "" when the file is a site asset and must stay out of the upload tree.
// Names are compared in Unicode NFC so decomposed filenames from macOS match.
func (p Plan) ClassifyOriginal(name string) string {
	name = norm.NFC.String(name)
	switch {
	case p.CarouselPrefix != "" && strings.HasPrefix(name, p.CarouselPrefix):
		return p.OriginalsDest
	case containsNFC(p.CarouselOriginals, name):
		return p.OriginalsDest
	case containsNFC(p.SiteAssets, name):
		return ""
	default:
		return p.OriginalsDest
	}
}

func containsNFC(list []string, name string) bool {
	for _, candidate := range list {
		if norm.NFC.String(candidate) == name {
			return true
		}
	}
	return false
}
