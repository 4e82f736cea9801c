package config

// EnvInfo definition relay server env structure
type EnvInfo struct {
	// http
	Port        string
	ExternalURL string

	// persistence
	MongoURI     string
	MongoDB      string
	SnapshotPath string

	// uploads
	UploadDir     string
	MinIOEndpoint string
	MinIOUser     string
	MinIOPassword string
	MinIOBucket   string

	// misc
	LogDir string
	Debug  bool
}

// UseMongo cloud document store is selected when MONGO_URI is present
func (e EnvInfo) UseMongo() bool {
	return e.MongoURI != ""
}

// UseMinIO object store uploads are selected when MINIO_ENDPOINT is present
func (e EnvInfo) UseMinIO() bool {
	return e.MinIOEndpoint != ""
}
