package vulkan

import "sync"

type LockGroup string

const (
	PipelineManagement   LockGroup = "pipeline_management"
	DescriptorManagement LockGroup = "descriptor_management"
)

/**
 * @brief Mutexes shared by everything created from one device. Pipeline
 * creation and descriptor pool growth take a group lock; Vulkan requires
 * external synchronization of queues, so every submission and presentation
 * on a queue family goes through SafeQueueCall.
 */
type VulkanLockPool struct {
	mu     sync.Mutex
	groups map[LockGroup]*sync.Mutex
	queues map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		groups: make(map[LockGroup]*sync.Mutex),
		queues: make(map[uint32]*sync.Mutex),
	}
}

func lockFor[K comparable](mu *sync.Mutex, locks map[K]*sync.Mutex, key K) *sync.Mutex {
	mu.Lock()
	defer mu.Unlock()
	l, ok := locks[key]
	if !ok {
		l = &sync.Mutex{}
		locks[key] = l
	}
	return l
}

func (lp *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := lockFor(&lp.mu, lp.groups, group)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// SetQueueFamily registers the lock of a queue family before first use.
func (lp *VulkanLockPool) SetQueueFamily(index uint32) {
	lockFor(&lp.mu, lp.queues, index)
}

func (lp *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := lockFor(&lp.mu, lp.queues, queueFamilyIndex)
	l.Lock()
	defer l.Unlock()
	return fn()
}
