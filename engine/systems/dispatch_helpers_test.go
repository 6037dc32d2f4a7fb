package systems

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

// pendingDispatcher keeps jobs until run is called.
type pendingDispatcher struct {
	jobs []metadata.JobTask
}

func (d *pendingDispatcher) Submit(jt metadata.JobTask) error {
	d.jobs = append(d.jobs, jt)
	return nil
}

func (d *pendingDispatcher) run() {
	jobs := d.jobs
	d.jobs = nil
	for _, jt := range jobs {
		runJob(context.Background(), "pending dispatcher", jt)
	}
}
