package cfg

type Cfg struct {
	// Object store configuration
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Database configuration
	DBPath string

	// Processing configuration
	SourcesFile       string
	WorkerCount       int
	SchedulerInterval int
	LookbackHours     int
	MinContentChars   int
	Exhaustive        bool
	DryRun            bool

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
