package topology

import (
	"strings"
	"testing"
)

func TestResolveKind(t *testing.T) {
	tests := []struct {
		name        string
		custom      []string
		wantKind    Kind
		wantKeyword string
	}{
		{name: "DeviceA", wantKind: KindCEOS},
		{name: "host-C", wantKind: KindHost},
		{name: "host-xrv", wantKind: KindHost},
		{name: "quagga-xrv", wantKind: KindQuagga},
		{name: "r1-XRV", wantKind: KindXRV},
		{name: "vmx-csr", wantKind: KindVMX},
		{name: "csr1", wantKind: KindCSR},
		{name: "phy-port", wantKind: KindPhy},
		{name: "frr-1", custom: []string{"frr"}, wantKind: KindGeneric, wantKeyword: "frr"},
		{name: "host-frr", custom: []string{"frr"}, wantKind: KindHost},
		{name: "leaf", custom: []string{"frr"}, wantKind: KindCEOS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, kw := ResolveKind(tt.name, tt.custom)
			if kind != tt.wantKind || kw != tt.wantKeyword {
				t.Fatalf("ResolveKind(%q) = %s,%q, want %s,%q", tt.name, kind, kw, tt.wantKind, tt.wantKeyword)
			}
		})
	}
}

func TestKindSpec_ReturnsCopies(t *testing.T) {
	s := KindCEOS.Spec()
	s.Env[0] = "MUTATED=1"
	if KindCEOS.Spec().Env[0] == "MUTATED=1" {
		t.Fatal("Spec() shares the Env slice with the defaults table")
	}
}

func TestKinds_DefaultLast(t *testing.T) {
	kinds := Kinds()
	if kinds[len(kinds)-1] != KindCEOS {
		t.Fatalf("Kinds() last = %s, want ceos", kinds[len(kinds)-1])
	}
	for _, k := range kinds {
		if strings.HasPrefix(k.String(), "kind(") {
			t.Errorf("kind %d has no name", uint8(k))
		}
	}
}

func TestAcceptsAddresses(t *testing.T) {
	if KindCEOS.AcceptsAddresses() {
		t.Error("ceos should not accept user addresses")
	}
	if !KindHost.AcceptsAddresses() {
		t.Error("host should accept user addresses")
	}
}

func TestEntryCommand(t *testing.T) {
	tests := []struct {
		kind      Kind
		published map[int]int
		want      string
	}{
		{KindCEOS, nil, "docker exec -it lab-a Cli"},
		{KindCEOS, map[int]int{22: 30022}, "ssh -p 30022 admin@localhost"},
		{KindCEOS, map[int]int{443: 30444}, "docker exec -it lab-a Cli (https://localhost:30444)"},
		{KindCEOS, map[int]int{22: 30022, 443: 30444}, "ssh -p 30022 admin@localhost"},
		{KindHost, map[int]int{22: 30022}, "docker exec -it lab-a sh"},
		{KindQuagga, nil, "docker exec -it lab-a vtysh"},
		{KindXRV, nil, "docker exec -it lab-a telnet 127.0.0.1 5000"},
	}
	for _, tt := range tests {
		if got := EntryCommand(tt.kind, "lab-a", tt.published); got != tt.want {
			t.Errorf("EntryCommand(%s, %v) = %q, want %q", tt.kind, tt.published, got, tt.want)
		}
	}
}
