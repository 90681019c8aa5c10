package extract

import "testing"

func TestParsePriceList(t *testing.T) {
	text := `☞ 20   🆄🅲  ➪  19  Bᴀɴᴋ
☞ 161  🆄🅲  ➪  178 Bᴀɴᴋ
☞ Weekly Lite  ➪ 40.0 Bᴀɴᴋ
☞ Level Up-6   ➪ 35.0 Bᴀɴᴋ
☞ Evo 3 Day   ➪ 66.0 Bᴀɴᴋ`

	prices := ParsePriceList(text)
	if prices == nil {
		t.Fatal("expected price list record")
	}

	if got := len(prices.UnitPrices); got != 2 {
		t.Fatalf("len(unitPrices) = %d, want 2", got)
	}
	if prices.UnitPrices[0].Amount != 20 || prices.UnitPrices[0].Price != 19 {
		t.Fatalf("first unit price = %+v", prices.UnitPrices[0])
	}
	if prices.UnitPrices[1].Amount != 161 || prices.UnitPrices[1].Price != 178 {
		t.Fatalf("second unit price = %+v", prices.UnitPrices[1])
	}

	if got := len(prices.Packages); got != 3 {
		t.Fatalf("len(packages) = %d, want 3", got)
	}
	if prices.Packages[0].Name != "Weekly Lite" || prices.Packages[0].Price != 40.0 {
		t.Fatalf("weekly package = %+v", prices.Packages[0])
	}
	if prices.Packages[1].Name != "Level Up 6" || prices.Packages[1].Type != "level-up" {
		t.Fatalf("level package = %+v", prices.Packages[1])
	}
	if prices.Packages[2].Name != "Evo 3 Day" || prices.Packages[2].Price != 66.0 {
		t.Fatalf("day package = %+v", prices.Packages[2])
	}
}

func TestParsePriceListNormalizedInput(t *testing.T) {
	// The normalizer strips ☞ and ➪ before extraction; the recognizer
	// still matches on the surviving markers.
	text := Normalize("☞ 20   🆄🅲  ➪  19  Bᴀɴᴋ\n☞ Level Up-6   ➪ 35.0 Bᴀɴᴋ")

	prices := ParsePriceList(text)
	if prices == nil {
		t.Fatal("expected price list record")
	}
	if got := len(prices.UnitPrices); got != 1 {
		t.Fatalf("len(unitPrices) = %d, want 1", got)
	}
	if got := len(prices.Packages); got != 1 {
		t.Fatalf("len(packages) = %d, want 1", got)
	}
	if prices.Packages[0].Name != "Level Up 6" {
		t.Fatalf("package = %+v", prices.Packages[0])
	}
}

func TestParsePriceListArrowVariants(t *testing.T) {
	text := "☞ 20 🆄🅲 ⇨ 19 Bᴀɴᴋ\n☞ 40 🆄🅲 -> 38 Bᴀɴᴋ\n☞ Weekly Lite => 40.0 Bᴀɴᴋ"

	prices := ParsePriceList(text)
	if prices == nil {
		t.Fatal("expected price list record")
	}
	if got := len(prices.UnitPrices); got != 2 {
		t.Fatalf("len(unitPrices) = %d, want 2", got)
	}
	if got := len(prices.Packages); got != 1 {
		t.Fatalf("len(packages) = %d, want 1", got)
	}
}

func TestParsePriceListEmpty(t *testing.T) {
	if prices := ParsePriceList("no pricing here"); prices != nil {
		t.Fatalf("expected nil, got %+v", prices)
	}
}
