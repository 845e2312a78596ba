package species

import "time"

// Loop runs the cluster's cadence: every interval the sync callback pulls a
// fresh view of the population into the cluster (newborns, deaths), then a
// full recluster runs. The loop checks its stop channel between passes; no
// pass is preempted.
func (c *Cluster) Loop(stop <-chan struct{}, interval time.Duration, sync func(*Cluster)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sync(c)
			c.Recluster()
		}
	}
}
