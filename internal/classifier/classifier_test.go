package classifier

import (
	"testing"

	"github.com/rewired-gh/smartbin/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		rawClass string
		item     string
		want     models.Category
	}{
		{"recyclable class and item", "recyclable", "bottle", models.CategoryRecyclable},
		{"empty class, organic item", "", "banana", models.CategoryOrganic},
		{"nothing at all", "", "", models.CategoryGeneral},
		{"recycl prefix", "Recycling", "mystery", models.CategoryRecyclable},
		{"compost class", "COMPOST", "napkin", models.CategoryOrganic},
		{"organic class", " organic ", "thing", models.CategoryOrganic},
		{"trash class", "trash", "bottle", models.CategoryGeneral},
		{"landfill class", "landfill", "apple", models.CategoryGeneral},
		{"class wins over item", "compost", "glass jar", models.CategoryOrganic},
		{"item fallback recyclable", "unknown", "Aluminum Foil", models.CategoryRecyclable},
		{"item fallback organic", "", "  Food scraps ", models.CategoryOrganic},
		{"recyclable item keyword beats organic one", "", "apple juice bottle", models.CategoryRecyclable},
		{"unknown everything", "plastic", "wrapper", models.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rawClass, tt.item); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, expected %s", tt.rawClass, tt.item, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := Classify("", "cardboard box"); got != models.CategoryRecyclable {
			t.Fatalf("run %d: got %s", i, got)
		}
	}
}

func TestExplainReportsDecidingRule(t *testing.T) {
	_, r := Explain("", "banana")
	if r.Field != FieldItem {
		t.Errorf("Expected item rule, got %s", r.Field)
	}

	_, r = Explain("recyclable", "banana")
	if r.Field != FieldRawClass {
		t.Errorf("Expected class rule, got %s", r.Field)
	}

	c, r := Explain("", "")
	if r.Field != FieldNone || c != models.CategoryGeneral {
		t.Errorf("Expected default rule to general, got %s / %s", r.Field, c)
	}
}

func TestRulesEndWithFallback(t *testing.T) {
	rs := Rules()
	if len(rs) == 0 || rs[len(rs)-1].Field != FieldNone {
		t.Fatal("Rule table must end with the fallback rule")
	}
	rs[0].Category = models.CategoryGeneral
	if Rules()[0].Category == models.CategoryGeneral {
		t.Error("Rules must return a copy")
	}
}
