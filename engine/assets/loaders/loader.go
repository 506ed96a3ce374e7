package loaders

// Resource is the decoded content of one asset file.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

type Loader interface {
	Load(path string) (*Resource, error)
	Unload(*Resource) error
}
