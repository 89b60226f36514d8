package topology

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind is the closed set of device categories.
type Kind uint8

const (
	KindCEOS Kind = iota
	KindHost
	KindQuagga
	KindXRV
	KindVMX
	KindCSR
	KindPhy
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindCEOS:
		return "ceos"
	case KindHost:
		return "host"
	case KindQuagga:
		return "quagga"
	case KindXRV:
		return "xrv"
	case KindVMX:
		return "vmx"
	case KindCSR:
		return "csr"
	case KindPhy:
		return "phy"
	case KindGeneric:
		return "generic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Resources holds request/limit hints in cluster quantity notation.
type Resources struct {
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

// KindSpec is the static defaults record for a kind.
type KindSpec struct {
	Image      string
	ImageEnv   string
	Command    []string
	Args       []string
	Env        []string
	Resources  Resources
	BootOffset time.Duration
	ConfigPath string
	ConfigFile string
	// External marks kinds eligible for published ports.
	External   bool
	Privileged bool
}

var kindSpecs = map[Kind]KindSpec{
	KindCEOS: {
		Image:    "ceos:4.20.5F",
		ImageEnv: "CEOS_IMAGE",
		Command:  []string{"/sbin/init"},
		Env: []string{
			"CEOS=1",
			"EOS_PLATFORM=ceossim",
			"container=docker",
			"ETBA=1",
			"SKIP_ZEROTOUCH_BARRIER_IN_SYSDBINIT=1",
			"INTFTYPE=eth",
		},
		Resources:  Resources{CPURequest: "0.5", MemoryRequest: "1Gi"},
		ConfigPath: "/mnt/flash",
		ConfigFile: "startup-config",
		External:   true,
		Privileged: true,
	},
	KindHost: {
		Image:      "networkop/host:ifreload",
		ImageEnv:   "HOST_IMAGE",
		Command:    []string{"sleep", "infinity"},
		Resources:  Resources{CPURequest: "0.1", MemoryRequest: "64Mi"},
		ConfigPath: "/etc/network",
		ConfigFile: "interfaces",
		Privileged: true,
	},
	KindQuagga: {
		Image:      "osrg/quagga:latest",
		ImageEnv:   "QUAGGA_IMAGE",
		Resources:  Resources{CPURequest: "0.1", MemoryRequest: "128Mi"},
		ConfigPath: "/etc/quagga",
		ConfigFile: "Quagga.conf",
		Privileged: true,
	},
	KindXRV: {
		Image:      "vrnetlab/vr-xrv:6.1.2",
		ImageEnv:   "XRV_IMAGE",
		Args:       []string{"--username", "admin", "--password", "admin"},
		Resources:  Resources{CPURequest: "1", MemoryRequest: "4Gi", MemoryLimit: "6Gi"},
		BootOffset: 30 * time.Second,
		External:   true,
		Privileged: true,
	},
	KindVMX: {
		Image:      "vrnetlab/vr-vmx:17.2R1.13",
		ImageEnv:   "VMX_IMAGE",
		Args:       []string{"--username", "admin", "--password", "admin"},
		Resources:  Resources{CPURequest: "2", MemoryRequest: "6Gi", MemoryLimit: "8Gi"},
		BootOffset: 30 * time.Second,
		External:   true,
		Privileged: true,
	},
	KindCSR: {
		Image:      "vrnetlab/vr-csr:16.04.01",
		ImageEnv:   "CSR_IMAGE",
		Args:       []string{"--username", "admin", "--password", "admin"},
		Resources:  Resources{CPURequest: "1", MemoryRequest: "4Gi", MemoryLimit: "4Gi"},
		BootOffset: 30 * time.Second,
		External:   true,
		Privileged: true,
	},
	KindPhy: {
		Image:     "alpine:3.20",
		ImageEnv:  "PHY_IMAGE",
		Command:   []string{"sleep", "infinity"},
		Resources: Resources{CPURequest: "0.1", MemoryRequest: "32Mi"},
	},
	KindGeneric: {
		Resources:  Resources{CPURequest: "0.1", MemoryRequest: "128Mi"},
		ConfigPath: "/config",
		ConfigFile: "config",
	},
}

// Kinds returns every kind in resolution priority order, default last.
func Kinds() []Kind {
	return []Kind{KindHost, KindQuagga, KindXRV, KindVMX, KindCSR, KindPhy, KindGeneric, KindCEOS}
}

// Spec returns the static defaults for k. The returned slices are copies.
func (k Kind) Spec() KindSpec {
	s := kindSpecs[k]
	s.Command = slices.Clone(s.Command)
	s.Args = slices.Clone(s.Args)
	s.Env = slices.Clone(s.Env)
	return s
}

// AcceptsAddresses reports whether user-supplied interface addresses are
// kept for devices of this kind.
func (k Kind) AcceptsAddresses() bool { return k != KindCEOS }

// QEMUBased reports whether the kind boots a VM behind internal bridges.
func (k Kind) QEMUBased() bool {
	return k == KindXRV || k == KindVMX || k == KindCSR
}

var builtinKeywords = []struct {
	keyword string
	kind    Kind
}{
	{"host", KindHost},
	{"quagga", KindQuagga},
	{"xrv", KindXRV},
	{"vmx", KindVMX},
	{"csr", KindCSR},
	{"phy", KindPhy},
}

// ResolveKind classifies a device name by ordered substring match. Custom
// keywords are tried after every builtin keyword, in the order given. The
// matched custom keyword is returned for KindGeneric.
func ResolveKind(name string, customKeywords []string) (Kind, string) {
	lower := strings.ToLower(name)
	for _, b := range builtinKeywords {
		if strings.Contains(lower, b.keyword) {
			return b.kind, ""
		}
	}
	for _, kw := range customKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return KindGeneric, kw
		}
	}
	return KindCEOS, ""
}

// EntryCommand describes how an operator reaches a device. published maps
// the device's internal ports to their external host ports. A published SSH
// port replaces the console command; a published single-base port is
// listed after it.
func EntryCommand(kind Kind, workload string, published map[int]int) string {
	if !kind.Spec().External {
		return consoleCommand(kind, workload)
	}
	if port := published[22]; port > 0 {
		return fmt.Sprintf("ssh -p %d admin@localhost", port)
	}
	cmd := consoleCommand(kind, workload)
	if port := published[PublishedPort]; port > 0 {
		cmd += fmt.Sprintf(" (https://localhost:%d)", port)
	}
	return cmd
}

func consoleCommand(kind Kind, workload string) string {
	switch kind {
	case KindCEOS:
		return fmt.Sprintf("docker exec -it %s Cli", workload)
	case KindQuagga:
		return fmt.Sprintf("docker exec -it %s vtysh", workload)
	case KindXRV, KindVMX, KindCSR:
		return fmt.Sprintf("docker exec -it %s telnet 127.0.0.1 5000", workload)
	default:
		return fmt.Sprintf("docker exec -it %s sh", workload)
	}
}
