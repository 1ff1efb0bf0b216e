package dataset

import (
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
)

// Layout decides how the files of a dataset are split between tasks and workers.
type Layout interface {
	// ShardFiles discovers the dataset and returns every file plus the files owned by this task.
	ShardFiles(p *Processor, isTraining bool) (all, inTask []string, err error)
	// ShardDataset returns the files worker workerID of numWorkers reads on this task.
	ShardDataset(p *Processor, workerID, numWorkers int) []string
}

// FileLayout stores one example per HDF5 file.
type FileLayout struct{}

var _ Layout = FileLayout{}

// ShardFiles assigns files[task_id::num_tasks] to this task, or every file when
// activation workers should see duplicate data.
func (FileLayout) ShardFiles(p *Processor, _ bool) ([]string, []string, error) {
	all, err := hdf5io.Discover(p.DataDir(), p.filePattern)
	if err != nil {
		return nil, nil, err
	}
	if p.duplicateActWorkerData {
		return all, append([]string(nil), all...), nil
	}

	return all, stride(all, p.taskID, p.numTasks), nil
}

// ShardDataset assigns files_in_this_task[worker_id::num_workers] to a worker, or the whole task
// shard when sharding has been disabled.
func (FileLayout) ShardDataset(p *Processor, workerID, numWorkers int) []string {
	files := p.FilesInThisTask()
	if p.DisableSharding() {
		return files
	}

	return stride(files, workerID, numWorkers)
}

func stride(files []string, offset, step int) []string {
	var out []string
	for i := offset; i < len(files); i += step {
		out = append(out, files[i])
	}

	return out
}
