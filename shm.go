package panel

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// segment is a private System V shared memory segment mapped into the
// process.
type segment struct {
	id   int
	data []byte
}

func newSegment(size int) (*segment, error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0o600)
	if err != nil {
		return nil, fmt.Errorf("shmget: %w", err)
	}

	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("shmat: %w", err)
	}

	return &segment{id: id, data: data}, nil
}

// release marks the segment for removal. The mapping stays valid until every
// attached process, the X server included, has detached.
func (s *segment) release() {
	unix.SysvShmCtl(s.id, unix.IPC_RMID, nil)
}
