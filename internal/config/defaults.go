package config

const (
	defaultProjectDir          = "."
	defaultPublicDir           = "public"
	defaultUploadDir           = "public/images/uploads"
	defaultWebDir              = "public/images/web"
	defaultAssetsDir           = "public/assets"
	defaultBackupDir           = "public/images/originals"
	defaultContentDir          = "public/content"
	defaultDownloadDir         = "public/images/downloads"
	defaultStateDirFallback    = "~/.local/state/pihla"
	defaultLogDirName          = "logs"
	defaultMaxWidth            = 1920
	defaultMinSizeKB           = 100
	defaultQuality             = 85
	defaultPNGCompressionLevel = 9
	defaultHEICQuality         = 100
	defaultTempSuffix          = ".tmp"
	defaultStaleTempMinutes    = 60
	defaultJpegtran            = "jpegtran"
	defaultPngquant            = "pngquant"
	defaultToolTimeout         = 120
	defaultCMSConfig           = "public/admin/config.yml"
	defaultMediaFolder         = "public/images/uploads"
	defaultPublicFolder        = "/images/uploads"
	defaultOGLogo              = "public/assets/pihla-folk-logo.png"
	defaultOGOutput            = "public/og-image.jpg"
	defaultOGWidth             = 1200
	defaultOGHeight            = 630
	defaultOGBackground        = "#f4f4f4"
	defaultOGLogoRatio         = 0.6
	defaultOGQuality           = 90
	defaultWatchDebounceMillis = 2000
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Reference rewrite modes for the migration utility.
const (
	RewriteModeText    = "text"
	RewriteModeStrings = "strings"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir:  defaultProjectDir,
			PublicDir:   defaultPublicDir,
			UploadDir:   defaultUploadDir,
			WebDir:      defaultWebDir,
			AssetsDir:   defaultAssetsDir,
			BackupDir:   defaultBackupDir,
			ContentDir:  defaultContentDir,
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir(),
		},
		Optimize: Optimize{
			MaxWidth:            defaultMaxWidth,
			MinSizeKB:           defaultMinSizeKB,
			JPEGQuality:         defaultQuality,
			JPEGProgressive:     true,
			PNGQuality:          defaultQuality,
			PNGCompressionLevel: defaultPNGCompressionLevel,
			WebPQuality:         defaultQuality,
			HEICQuality:         defaultHEICQuality,
			ConvertHEIC:         true,
			TempSuffix:          defaultTempSuffix,
			Exclude:             []string{"**/.*"},
			StaleTempMinutes:    defaultStaleTempMinutes,
		},
		Tools: Tools{
			Jpegtran: defaultJpegtran,
			Pngquant: defaultPngquant,
			Timeout:  defaultToolTimeout,
		},
		Migrate: Migrate{
			RewriteMode:  RewriteModeText,
			CMSConfig:    defaultCMSConfig,
			MediaFolder:  defaultMediaFolder,
			PublicFolder: defaultPublicFolder,
		},
		OG: OG{
			Logo:       defaultOGLogo,
			Output:     defaultOGOutput,
			Width:      defaultOGWidth,
			Height:     defaultOGHeight,
			Background: defaultOGBackground,
			LogoRatio:  defaultOGLogoRatio,
			Quality:    defaultOGQuality,
		},
		Watch: Watch{
			DebounceMillis: defaultWatchDebounceMillis,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
