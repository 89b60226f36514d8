package topology

import (
	"errors"
	"strings"
	"testing"
)

func FuzzParseEndpoint(f *testing.F) {
	f.Add("DeviceA:Interface1")
	f.Add("host-b.lab:Ethernet1/1:10.0.0.1/24")
	f.Add("x:y:z:w")
	f.Add(":::")

	f.Fuzz(func(t *testing.T, token string) {
		ep, err := ParseEndpoint(token)
		if err != nil && !errors.Is(err, ErrInvalidAddress) {
			return
		}
		if ep.Device == "" || ep.Interface == "" {
			t.Fatalf("ParseEndpoint(%q) accepted empty device or interface: %+v", token, ep)
		}
		if strings.Contains(ep.Device, ".") {
			t.Fatalf("ParseEndpoint(%q) kept domain suffix: %q", token, ep.Device)
		}
		if ep.HasAddr() && ep.Addr.Bits() >= ep.Addr.Addr().BitLen() {
			t.Fatalf("ParseEndpoint(%q) accepted host prefix %s", token, ep.Addr)
		}
		again, _ := ParseEndpoint(token)
		if again != ep {
			t.Fatalf("ParseEndpoint(%q) not deterministic: %+v vs %+v", token, ep, again)
		}
	})
}
