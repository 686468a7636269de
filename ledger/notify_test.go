package ledger

import "testing"

func TestEventMatches(t *testing.T) {
	ev := Event{
		Type:        EventSpinRecorded,
		PhoneNumber: "+15551230001",
		DeviceID:    "device-alpha-01",
	}

	cases := []struct {
		name  string
		id    Identity
		match bool
	}{
		{"exact pair", Identity{PhoneNumber: "+15551230001", DeviceID: "device-alpha-01"}, true},
		{"phone only", Identity{PhoneNumber: "+15551230001", DeviceID: "device-other-99"}, true},
		{"device only", Identity{PhoneNumber: "+15559990000", DeviceID: "device-alpha-01"}, true},
		{"neither", Identity{PhoneNumber: "+15559990000", DeviceID: "device-other-99"}, false},
	}
	for _, c := range cases {
		if got := ev.Matches(c.id); got != c.match {
			t.Fatalf("%s: expected %v, got %v", c.name, c.match, got)
		}
	}
}
