package scenario

// AllRegions lists the 32 geopolitical regions of the standard reference
// workspace. Operations accepting a region list treat an empty list as "all".
var AllRegions = []string{
	"Africa_Eastern",
	"Africa_Northern",
	"Africa_Southern",
	"Africa_Western",
	"Argentina",
	"Australia_NZ",
	"Brazil",
	"Canada",
	"Central America and Caribbean",
	"Central Asia",
	"China",
	"Colombia",
	"EU-12",
	"EU-15",
	"Europe_Eastern",
	"Europe_Non_EU",
	"European Free Trade Association",
	"India",
	"Indonesia",
	"Japan",
	"Mexico",
	"Middle East",
	"Pakistan",
	"Russia",
	"South Africa",
	"South America_Northern",
	"South America_Southern",
	"South Asia",
	"South Korea",
	"Southeast Asia",
	"Taiwan",
	"USA",
}
