package catalog

// Default returns the built-in construction catalog.
func Default() *Catalog {
	c, err := New(builtinCategories())
	if err != nil {
		panic("catalog: invalid built-in data: " + err.Error())
	}
	return c
}

// perimeter assumes a square footprint: 4 * sqrt(area).
func perimeter() Expr { return Mul(C(4), Sqrt(Q())) }

// ceilDiv is ceil(quantity / n).
func ceilDiv(n float64) Expr { return Ceil(Div(Q(), C(n))) }

// ceilMul is ceil(quantity * n).
func ceilMul(n float64) Expr { return Ceil(Mul(Q(), C(n))) }

// meshTape is sheet joints plus room perimeter: ceil(q/32*12 + 2*sqrt(q)*2).
func meshTape() Expr {
	return Ceil(Add(
		Mul(Div(Q(), C(32)), C(12)),
		Mul(C(2), Sqrt(Q()), C(2)),
	))
}

func builtinCategories() []Category {
	return []Category{
		{
			Key:  "demolition",
			Name: "Demolition",
			Rules: []ActionRule{
				{
					ID: "demo_wall", Name: "Demolish Wall", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Disposal Bags", Unit: "Bags", Quantity: ceilDiv(20), CostPerUnit: 2.50},
					},
					Subtasks: []Formula{
						// 3" debris depth converted to cubic yards.
						{Name: "Debris Removal", Unit: "Cu. Yd", Quantity: Div(Mul(Q(), C(0.25)), C(27)), CostPerUnit: 50.00},
					},
				},
				{
					ID: "demo_floor", Name: "Remove Flooring", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Disposal Bags", Unit: "Bags", Quantity: ceilDiv(30), CostPerUnit: 2.50},
					},
					Subtasks: []Formula{
						{Name: "Debris Removal", Unit: "Cu. Yd", Quantity: Div(Mul(Q(), C(0.08)), C(27)), CostPerUnit: 50.00},
					},
				},
			},
		},
		{
			Key:  "framing",
			Name: "Framing",
			Rules: []ActionRule{
				{
					ID: "frame_interior_walls", Name: "Frame Interior Walls", DefaultUnit: "Linear Ft",
					Materials: []Formula{
						{Name: "Dimensional Lumber (2x4 or 2x6)", Unit: "Linear Ft", Quantity: ceilMul(3.0), CostPerUnit: 0.75},
						{Name: "Framing Nails", Unit: "Lbs", Quantity: ceilDiv(100), CostPerUnit: 3.00},
					},
				},
				{
					ID: "frame_door", Name: "Frame Door Opening", DefaultUnit: "Count",
					Materials: []Formula{
						{Name: "2x4 Studs", Unit: "Pcs", Quantity: Mul(Q(), C(4)), CostPerUnit: 5.50},
						{Name: "2x6 Header", Unit: "Pcs", Quantity: Mul(Q(), C(1)), CostPerUnit: 12.00},
					},
				},
				{
					ID: "frame_exterior_walls", Name: "Frame Exterior Walls", DefaultUnit: "Linear Ft",
					Materials: []Formula{
						{Name: "Dimensional Lumber (2x4 or 2x6)", Unit: "Linear Ft", Quantity: ceilMul(3.5), CostPerUnit: 0.75},
						{Name: "Framing Nails", Unit: "Lbs", Quantity: ceilDiv(75), CostPerUnit: 3.00},
						// 8 ft wall height, 32 sq ft sheets, 10% overage.
						{Name: "OSB Sheathing (7/16\")", Unit: "Sheets", Quantity: Ceil(Mul(Div(Mul(Q(), C(8)), C(32)), C(1.10))), CostPerUnit: 25.00},
						{Name: "House Wrap", Unit: "Sq. Ft", Quantity: Ceil(Mul(Mul(Q(), C(8)), C(1.10))), CostPerUnit: 0.15},
					},
				},
				{
					ID: "frame_sliding_glass_door", Name: "Frame Sliding Glass Door Opening", DefaultUnit: "Each",
					Materials: []Formula{
						{Name: "Header Lumber (e.g., (2) 2x10s or similar)", Unit: "Linear Ft", Quantity: ceilMul(10), CostPerUnit: 1.50},
						{Name: "Framing Lumber (King/Jack Studs, Cripples)", Unit: "Linear Ft", Quantity: ceilMul(30), CostPerUnit: 0.75},
						{Name: "Framing Nails", Unit: "Lbs", Quantity: ceilMul(0.5), CostPerUnit: 3.00},
					},
				},
			},
		},
		{
			Key:  "drywall",
			Name: "Drywall",
			Rules: []ActionRule{
				{
					ID: "drywall_hang", Name: "Hang Drywall", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Drywall Sheets", Unit: "Sheets", Quantity: ceilDiv(32), CostPerUnit: 15.00},
						{Name: "Drywall Screws", Unit: "Lbs", Quantity: Ceil(Mul(Div(Q(), C(32)), C(0.5))), CostPerUnit: 4.50},
					},
				},
				{
					ID: "drywall_tape", Name: "Tape and Mud Drywall", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Mesh Tape", Unit: "Lin. Ft", Quantity: meshTape(), CostPerUnit: 0.05},
						{Name: "Joint Compound", Unit: "Gallons", Quantity: ceilDiv(100), CostPerUnit: 18.00},
					},
				},
				{
					ID: "drywall_texture", Name: "Texture Drywall", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Texture Spray", Unit: "Cans", Quantity: ceilDiv(80), CostPerUnit: 12.00},
					},
				},
				{
					ID: "drywall_complete", Name: "Complete Drywall Installation", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Drywall Sheets", Unit: "Sheets", Quantity: ceilDiv(32), CostPerUnit: 20.00},
						{Name: "Drywall Screws", Unit: "Unit", Quantity: Ceil(Q()), CostPerUnit: 4.50},
						{Name: "Mesh Tape", Unit: "Lin. Ft", Quantity: meshTape(), CostPerUnit: 0.05},
						{Name: "Joint Compound", Unit: "Gallons", Quantity: ceilDiv(100), CostPerUnit: 18.00},
						{Name: "Texture Spray", Unit: "Cans", Quantity: ceilDiv(80), CostPerUnit: 12.00},
					},
				},
			},
		},
		{
			Key:  "flooring",
			Name: "Flooring",
			Rules: []ActionRule{
				{
					ID: "floor_hardwood", Name: "Install Hardwood Flooring", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Hardwood Planks", Unit: "Sq. Ft", Quantity: Mul(Q(), C(1.1)), CostPerUnit: 8.00},
						{Name: "Underlayment", Unit: "Sq. Ft", Quantity: Q(), CostPerUnit: 0.50},
						{Name: "Wood Flooring Nails", Unit: "Lbs", Quantity: ceilDiv(50), CostPerUnit: 3.50},
					},
				},
				{
					ID: "floor_tile", Name: "Install Tile Flooring", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Tile", Unit: "Sq. Ft", Quantity: Mul(Q(), C(1.1)), CostPerUnit: 6.00},
						{Name: "Tile Adhesive", Unit: "Gallons", Quantity: ceilDiv(80), CostPerUnit: 45.00},
						{Name: "Grout", Unit: "Lbs", Quantity: ceilDiv(20), CostPerUnit: 3.00},
						{Name: "Spacers", Unit: "Bags", Quantity: ceilDiv(100), CostPerUnit: 5.00},
					},
				},
			},
		},
		{
			Key:  "painting",
			Name: "Painting",
			Rules: []ActionRule{
				{
					ID: "paint_interior", Name: "Paint Interior Walls", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Primer", Unit: "Gallons", Quantity: ceilDiv(400), CostPerUnit: 25.00},
						{Name: "Paint", Unit: "Gallons", Quantity: ceilDiv(350), CostPerUnit: 35.00},
						{Name: "Painter's Tape", Unit: "Rolls", Quantity: ceilDiv(200), CostPerUnit: 7.00},
						{Name: "Drop Cloths", Unit: "Each", Quantity: ceilDiv(500), CostPerUnit: 10.00},
					},
				},
			},
		},
		{
			Key:  "subfloor",
			Name: "Subfloor",
			Rules: []ActionRule{
				{
					ID: "install_plywood_subfloor", Name: "Install Plywood Subfloor", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Plywood Sheeting", Unit: "Sheets", Quantity: Mul(ceilDiv(32), C(1.10)), CostPerUnit: 30.00},
						{Name: "Great Stuff Pro Adhesive", Unit: "Tubes", Quantity: ceilDiv(350), CostPerUnit: 20.00},
						// 16" OC joists, 6" perimeter and 12" field spacing, square room.
						{Name: "2 in. Construction Screws", Unit: "Count", Quantity: Ceil(Add(Mul(Q(), C(0.75)), Mul(C(8), Sqrt(Q())))), CostPerUnit: 0.15},
					},
				},
			},
		},
		{
			Key:  "install_windows",
			Name: "Install Windows",
			Rules: []ActionRule{
				{
					ID: "install_standard_window", Name: "Install Standard Window", DefaultUnit: "Each",
					Materials: []Formula{
						{Name: "Window Shims", Unit: "Bundles", Quantity: ceilMul(0.5), CostPerUnit: 5.00},
						{Name: "Low-Expansion Spray Foam Sealant", Unit: "Cans", Quantity: ceilMul(0.3), CostPerUnit: 10.00},
						{Name: "Exterior Window Sealant/Caulking", Unit: "Tubes", Quantity: ceilMul(0.2), CostPerUnit: 8.00},
						{Name: "Window Fasteners/Screws", Unit: "Boxes", Quantity: ceilMul(0.1), CostPerUnit: 15.00},
					},
				},
			},
		},
		{
			Key:  "install_doors",
			Name: "Install Doors",
			Rules: []ActionRule{
				{
					ID: "install_interior_door", Name: "Install Interior Door", DefaultUnit: "Each",
					Materials: []Formula{
						{Name: "Interior Door Unit (Pre-hung or Slab)", Unit: "Each", Quantity: Ceil(Q()), CostPerUnit: 150.00},
						{Name: "Door Hardware (Hinges, Knob/Lever)", Unit: "Sets", Quantity: Ceil(Q()), CostPerUnit: 35.00},
						{Name: "Door Casing/Trim", Unit: "Linear Ft", Quantity: ceilMul(20), CostPerUnit: 1.00},
						{Name: "Wood Shims", Unit: "Bundles", Quantity: ceilMul(0.5), CostPerUnit: 5.00},
						{Name: "Finish Nails/Screws", Unit: "Lbs", Quantity: ceilMul(0.1), CostPerUnit: 3.00},
					},
				},
				{
					ID: "install_exterior_door", Name: "Install Exterior Door", DefaultUnit: "Each",
					Materials: []Formula{
						{Name: "Exterior Door Unit (Pre-hung)", Unit: "Each", Quantity: Ceil(Q()), CostPerUnit: 600.00},
						{Name: "Exterior Door Hardware (Lockset, Deadbolt)", Unit: "Sets", Quantity: Ceil(Q()), CostPerUnit: 75.00},
						{Name: "Exterior Door Casing/Trim", Unit: "Linear Ft", Quantity: ceilMul(12), CostPerUnit: 1.50},
						{Name: "Wood Shims", Unit: "Bundles", Quantity: ceilMul(0.5), CostPerUnit: 5.00},
						{Name: "Exterior Grade Fasteners/Screws", Unit: "Lbs", Quantity: ceilMul(0.2), CostPerUnit: 5.00},
						{Name: "Low-Expansion Spray Foam Insulation", Unit: "Cans", Quantity: ceilMul(0.5), CostPerUnit: 10.00},
						{Name: "Exterior Sealant/Caulking", Unit: "Tubes", Quantity: ceilMul(0.3), CostPerUnit: 8.00},
						{Name: "Flashing Tape", Unit: "Rolls", Quantity: ceilMul(0.2), CostPerUnit: 20.00},
					},
				},
			},
		},
		{
			Key:  "install_roof",
			Name: "Install Roof",
			Rules: []ActionRule{
				{
					ID: "install_class_a_roof", Name: "Install Class A Roof", DefaultUnit: "Sq. Ft",
					Materials: []Formula{
						{Name: "Class A Roofing Shingles/Tiles", Unit: "Bundles", Quantity: Ceil(Mul(Div(Q(), C(100)), C(3), C(1.10))), CostPerUnit: 50.00},
						{Name: "Roofing Underlayment (Synthetic or Felt)", Unit: "Rolls", Quantity: Ceil(Mul(Div(Q(), C(1000)), C(1.05))), CostPerUnit: 100.00},
						{Name: "Roofing Nails (Galvanized)", Unit: "Lbs", Quantity: Ceil(Mul(Div(Q(), C(100)), C(0.2))), CostPerUnit: 3.00},
						{Name: "Drip Edge", Unit: "Linear Ft", Quantity: Ceil(Mul(perimeter(), C(1.05))), CostPerUnit: 2.00},
						{Name: "Coping Material", Unit: "Linear Ft", Quantity: Ceil(Mul(perimeter(), C(1.10))), CostPerUnit: 8.00},
						{Name: "Gutter Material (Seamless Aluminum)", Unit: "Linear Ft", Quantity: Ceil(Mul(perimeter(), C(1.10))), CostPerUnit: 6.00},
						{Name: "Gutter Downspouts", Unit: "Each", Quantity: ceilDiv(1000), CostPerUnit: 30.00},
						// One bracket every 3 ft of gutter.
						{Name: "Gutter Hangers/Brackets", Unit: "Each", Quantity: Ceil(Mul(Div(perimeter(), C(3)), C(1.05))), CostPerUnit: 2.50},
						{Name: "Roof Vents (e.g., Ridge Vent or Box Vents)", Unit: "Each", Quantity: ceilDiv(1500), CostPerUnit: 25.00},
						{Name: "Roofing Sealants/Caulking (Roofing Grade)", Unit: "Tubes", Quantity: ceilDiv(500), CostPerUnit: 8.00},
					},
				},
			},
		},
	}
}
