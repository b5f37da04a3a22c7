package directory

// commonSurnames approximates exhaustive coverage for directories that
// require an exact last-name match. A deliberate completeness/cost
// tradeoff: a full name dictionary would make sweeps run for days.
var commonSurnames = []string{
	"Smith", "Brown", "Tremblay", "Martin", "Roy", "Wilson", "Macdonald",
	"Gagnon", "Johnson", "Taylor", "Campbell", "Anderson", "Leblanc",
	"Jones", "Cote", "Williams", "Miller", "Thompson", "Gauthier", "White",
	"Lee", "Morin", "Young", "Bouchard", "Scott", "Stewart", "Moore",
	"Pelletier", "Clark", "Johnston", "Belanger", "Walker", "Wong",
	"Levesque", "Reid", "Ross", "Bergeron", "King", "Murray", "Leclerc",
	"Mitchell", "Robinson", "Gray", "Girard", "Davis", "Fortin", "Simard",
	"Li", "Wright", "Boucher", "Kelly", "Wood", "Lavoie", "Fraser",
	"Grant", "Bell", "Caron", "Hall", "Chan", "Beaulieu", "Evans",
	"Cloutier", "Murphy", "Watson", "Gill", "Paquette", "Hill", "Nguyen",
	"Dube", "Lewis", "Poirier", "Singh", "Allen", "Fournier", "Green",
	"Ouellet", "Baker", "Lapointe", "Adams", "Thomas", "Turner", "Landry",
	"Jackson", "Richard", "Cameron", "Hamilton", "Peterson", "Gagne",
	"Graham", "Bernier", "Ferguson", "Cook", "Demers", "Kennedy",
	"Lefebvre", "Henderson", "Parent", "Mackenzie", "Hebert", "Patel",
}
