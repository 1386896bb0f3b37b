// Package system probes the host for resources the export pipeline depends
// on: the ffmpeg binary, free disk space and memory headroom.
package system

import (
	"errors"
	"os/exec"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary is on PATH.
var ErrFFmpegNotFound = errors.New("system: ffmpeg not found in PATH")

// FindFFmpeg locates the ffmpeg binary used as the streaming container
// writer.
func FindFFmpeg() (string, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", ErrFFmpegNotFound
	}
	return path, nil
}

// FreeSpace returns the available bytes on the volume containing path.
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// DefaultWorkers sizes a render worker pool: one worker per CPU, capped so
// the in-flight frame buffers fit comfortably in available memory.
func DefaultWorkers(frameBytes int64) int {
	workers := runtime.NumCPU()
	if frameBytes <= 0 {
		return workers
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return workers
	}
	// Leave half of available memory to the rest of the process.
	byMemory := int(int64(vm.Available) / 2 / frameBytes)
	if byMemory < 1 {
		byMemory = 1
	}
	if byMemory < workers {
		return byMemory
	}
	return workers
}
