package beacon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		want NameInfo
	}{
		{"PetZone-Home-01", NameInfo{Location: "Home", ID: "01", Priority: 3}},
		{"PetZone-Home-Living-02", NameInfo{Location: "Home", Zone: "Living", ID: "02", Priority: 3}},
		{"PetZone-Garden-Back-Shed-07", NameInfo{Location: "Garden", Zone: "Back-Shed", ID: "07", Priority: 4}},
		{"PetZone-Safe-01", NameInfo{Location: "Safe", ID: "01", Function: "Safe", Priority: 1}},
		{"PetZone-Alert-03", NameInfo{Location: "Alert", ID: "03", Function: "Alert", Priority: 2}},
		{"PetZone-Feed-01", NameInfo{Location: "Feed", ID: "01", Function: "Feed", Priority: 5}},
		{"PetZone-Kitchen", NameInfo{Location: "Kitchen", ID: "00", Priority: 5}},
		{"PetZone", NameInfo{Location: "Unknown", ID: "00", Priority: 5}},
		{"PetZoneX", NameInfo{Location: "Unknown", ID: "00", Priority: 5}},
		{"Other-Home-01", NameInfo{Location: "Unknown", ID: "00", Priority: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseName("PetZone", tt.name))
		})
	}
}
