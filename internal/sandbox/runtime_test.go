package sandbox

import (
	"testing"

	"github.com/docker/docker/api/types/mount"
)

func TestBuildMountsDistinguishesBindAndVolume(t *testing.T) {
	mounts := buildMounts([]BindMount{
		{Source: "/host/path", Target: "/cad-exchange"},
		{Source: "job-volume", Target: "/work", IsVolume: true, ReadOnly: false},
	})
	if len(mounts) != 2 {
		t.Fatalf("got %d mounts, want 2", len(mounts))
	}
	if mounts[0].Type != mount.TypeBind {
		t.Fatalf("got %v, want bind", mounts[0].Type)
	}
	if mounts[1].Type != mount.TypeVolume {
		t.Fatalf("got %v, want volume", mounts[1].Type)
	}
}

func TestBuildHostConfigNetworkOff(t *testing.T) {
	hc := buildHostConfig(SandboxSpec{NetworkOff: true})
	if hc.NetworkMode != "none" {
		t.Fatalf("got %v, want none", hc.NetworkMode)
	}
}

func TestBuildHostConfigResourceCaps(t *testing.T) {
	hc := buildHostConfig(SandboxSpec{MemoryMB: 2048, CPUs: 2.0, Pids: 200, TmpfsMB: 512})
	if hc.Resources.Memory != 2048*1024*1024 {
		t.Fatalf("got memory %d, want %d", hc.Resources.Memory, 2048*1024*1024)
	}
	if hc.Resources.NanoCPUs != 2_000_000_000 {
		t.Fatalf("got nanocpus %d, want 2e9", hc.Resources.NanoCPUs)
	}
	if hc.Resources.PidsLimit == nil || *hc.Resources.PidsLimit != 200 {
		t.Fatalf("got pids limit %v, want 200", hc.Resources.PidsLimit)
	}
	if hc.Tmpfs["/tmp"] != "size=512m" {
		t.Fatalf("got tmpfs %v, want size=512m", hc.Tmpfs["/tmp"])
	}
}

func TestBuildHostConfigReadOnlyRoot(t *testing.T) {
	hc := buildHostConfig(SandboxSpec{ReadOnlyRoot: true})
	if !hc.ReadonlyRootfs {
		t.Fatalf("expected read-only root filesystem")
	}
}
