package systems

type SystemManagerConfig struct {
	AppName    string
	JobWorkers int
	JobQueue   int
}

type SystemManager struct {
	jobSystem *JobSystem
	notifier  *Notifier
}

func NewSystemManager(config SystemManagerConfig) (*SystemManager, error) {
	js, err := NewJobSystem(config.JobWorkers, config.JobQueue)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		jobSystem: js,
		notifier:  NewNotifier(js, config.AppName),
	}, nil
}

func (sm *SystemManager) Jobs() *JobSystem    { return sm.jobSystem }
func (sm *SystemManager) Notifier() *Notifier { return sm.notifier }

func (sm *SystemManager) Shutdown() error {
	return sm.jobSystem.Shutdown()
}
