package catalog

// Built-in content ids. Resource and equipment ids never overlap, so an item
// id alone identifies the definition.
const (
	ResourceStick      = 1
	ResourceStone      = 2
	ResourceWood       = 3
	ResourceBerries    = 4
	ResourceWater      = 5
	ResourceMushroom   = 6
	ResourceIronOre    = 7
	ResourceFish       = 8
	ResourceRabbit     = 9
	ResourceDeer       = 10
	ResourceBear       = 11
	ResourceBoar       = 12
	ResourceMeat       = 20
	ResourceLeather    = 21
	ResourceBones      = 22
	ResourceFur        = 23
	ResourceFat        = 24
	ResourceRoastMeat  = 25
	ResourceRope       = 26
	EquipmentStoneAxe  = 101
	EquipmentPickaxe   = 102
	EquipmentRod       = 103
	EquipmentSpear     = 104
	EquipmentBoneKnife = 105
	EquipmentHelmet    = 106
	EquipmentVest      = 107
	EquipmentPants     = 108
	EquipmentBoots     = 109
	BiomeForest        = 1
	BiomeRiver         = 2
	BiomeMountains     = 3
)

// Default returns the built-in content set.
func Default() *Catalog {
	resources := []*Resource{
		{ID: ResourceStick, Name: "Galho", Category: CategoryPlant, Weight: 0.5, Value: 1, ExperienceValue: 1, Rarity: "common", CollectSeconds: 3},
		{ID: ResourceStone, Name: "Pedra", Category: CategoryMineral, Weight: 1, Value: 1, ExperienceValue: 1, Rarity: "common", CollectSeconds: 3},
		{ID: ResourceWood, Name: "Madeira", Category: CategoryMaterial, Weight: 2, Value: 3, ExperienceValue: 2, Rarity: "common", DistanceFromCamp: 50, CollectSeconds: 8, RequiredTool: ToolAxe},
		{ID: ResourceBerries, Name: "Frutas Silvestres", Category: CategoryFood, Weight: 0.5, Value: 2, ExperienceValue: 1, Rarity: "common", CollectSeconds: 4, HungerRestore: 10},
		{ID: ResourceWater, Name: "Água Fresca", Category: CategoryDrink, Weight: 1, Value: 1, ExperienceValue: 1, Rarity: "common", CollectSeconds: 2, ThirstRestore: 15},
		{ID: ResourceMushroom, Name: "Cogumelo", Category: CategoryFood, Weight: 0.5, Value: 3, ExperienceValue: 2, Rarity: "uncommon", DistanceFromCamp: 100, CollectSeconds: 4, HungerRestore: 8},
		{ID: ResourceIronOre, Name: "Minério de Ferro", Category: CategoryMineral, Weight: 3, Value: 8, ExperienceValue: 5, Rarity: "uncommon", DistanceFromCamp: 200, CollectSeconds: 12, RequiredTool: ToolPickaxe},
		{ID: ResourceFish, Name: "Peixe", Category: CategoryFood, Weight: 1, Value: 5, ExperienceValue: 3, Rarity: "common", DistanceFromCamp: 100, CollectSeconds: 10, RequiredTool: ToolFishingRod, HungerRestore: 15},
		{ID: ResourceRabbit, Name: "Coelho", Category: CategoryAnimal, Weight: 2, Value: 6, ExperienceValue: 4, Rarity: "common", DistanceFromCamp: 50, CollectSeconds: 10},
		{ID: ResourceDeer, Name: "Veado", Category: CategoryAnimal, Weight: 5, Value: 20, ExperienceValue: 10, Rarity: "uncommon", CollectSeconds: 20},
		{ID: ResourceBear, Name: "Urso", Category: CategoryAnimal, Weight: 10, Value: 50, ExperienceValue: 25, Rarity: "rare", DistanceFromCamp: 300, CollectSeconds: 40},
		{ID: ResourceBoar, Name: "Javali", Category: CategoryAnimal, Weight: 6, Value: 25, ExperienceValue: 12, Rarity: "uncommon", DistanceFromCamp: 150, CollectSeconds: 25},
		{ID: ResourceMeat, Name: "Carne", Category: CategoryFood, Weight: 1, Value: 4, ExperienceValue: 2, Rarity: "common", HungerRestore: 20},
		{ID: ResourceLeather, Name: "Couro", Category: CategoryMaterial, Weight: 1, Value: 6, ExperienceValue: 3, Rarity: "common"},
		{ID: ResourceBones, Name: "Ossos", Category: CategoryMaterial, Weight: 0.5, Value: 2, ExperienceValue: 1, Rarity: "common"},
		{ID: ResourceFur, Name: "Pelo", Category: CategoryMaterial, Weight: 0.5, Value: 8, ExperienceValue: 4, Rarity: "uncommon"},
		{ID: ResourceFat, Name: "Banha", Category: CategoryMaterial, Weight: 0.5, Value: 3, ExperienceValue: 1, Rarity: "common"},
		{ID: ResourceRoastMeat, Name: "Carne Assada", Category: CategoryFood, Weight: 1, Value: 8, Rarity: "common", HungerRestore: 40},
		{ID: ResourceRope, Name: "Corda", Category: CategoryMaterial, Weight: 0.5, Value: 5, Rarity: "common"},
	}
	equipment := []*Equipment{
		{ID: EquipmentStoneAxe, Name: "Machado de Pedra", Slot: SlotTool, ToolType: ToolAxe, Weight: 3, Value: 10},
		{ID: EquipmentPickaxe, Name: "Picareta de Pedra", Slot: SlotTool, ToolType: ToolPickaxe, Weight: 3, Value: 12},
		{ID: EquipmentRod, Name: "Vara de Pesca", Slot: SlotTool, ToolType: ToolFishingRod, Weight: 2, Value: 10},
		{ID: EquipmentSpear, Name: "Lança", Slot: SlotWeapon, Weight: 3, Value: 15},
		{ID: EquipmentBoneKnife, Name: "Faca de Osso", Slot: SlotWeapon, ToolType: ToolKnife, Weight: 1, Value: 8},
		{ID: EquipmentHelmet, Name: "Capacete de Couro", Slot: SlotHelmet, Weight: 1, Value: 20},
		{ID: EquipmentVest, Name: "Colete de Couro", Slot: SlotChestplate, Weight: 2, Value: 35},
		{ID: EquipmentPants, Name: "Calças de Couro", Slot: SlotLeggings, Weight: 1.5, Value: 25},
		{ID: EquipmentBoots, Name: "Botas de Couro", Slot: SlotBoots, Weight: 1, Value: 20},
	}
	biomes := []*Biome{
		{ID: BiomeForest, Name: "Floresta", RequiredLevel: 0, MaxDistance: 400, Resources: []int{
			ResourceStick, ResourceStone, ResourceWood, ResourceBerries, ResourceWater,
			ResourceMushroom, ResourceRabbit, ResourceDeer, ResourceBoar,
		}},
		{ID: BiomeRiver, Name: "Rio", RequiredLevel: 2, MaxDistance: 300, Resources: []int{
			ResourceStone, ResourceWater, ResourceFish, ResourceRabbit,
		}},
		{ID: BiomeMountains, Name: "Montanhas", RequiredLevel: 5, MaxDistance: 600, Resources: []int{
			ResourceStone, ResourceIronOre, ResourceDeer, ResourceBear,
		}},
	}
	recipes := []*Recipe{
		{ID: 1, Name: "Machado de Pedra", ResultType: ItemTypeEquipment, ResultID: EquipmentStoneAxe, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceStick, 2}, {ResourceStone, 3}}},
		{ID: 2, Name: "Picareta de Pedra", ResultType: ItemTypeEquipment, ResultID: EquipmentPickaxe, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceStick, 2}, {ResourceStone, 4}}, RequiredLevel: 2},
		{ID: 3, Name: "Vara de Pesca", ResultType: ItemTypeEquipment, ResultID: EquipmentRod, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceStick, 3}, {ResourceRope, 1}}},
		{ID: 4, Name: "Corda", ResultType: ItemTypeResource, ResultID: ResourceRope, ResultQuantity: 2,
			Ingredients: []Ingredient{{ResourceLeather, 1}}},
		{ID: 5, Name: "Carne Assada", ResultType: ItemTypeResource, ResultID: ResourceRoastMeat, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceMeat, 1}, {ResourceStick, 1}}},
		{ID: 6, Name: "Faca de Osso", ResultType: ItemTypeEquipment, ResultID: EquipmentBoneKnife, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceBones, 2}, {ResourceStick, 1}}},
		{ID: 7, Name: "Capacete de Couro", ResultType: ItemTypeEquipment, ResultID: EquipmentHelmet, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceLeather, 3}}, RequiredLevel: 2},
		{ID: 8, Name: "Colete de Couro", ResultType: ItemTypeEquipment, ResultID: EquipmentVest, ResultQuantity: 1,
			Ingredients: []Ingredient{{ResourceLeather, 5}, {ResourceFur, 2}}, RequiredLevel: 3},
	}
	quests := []*Quest{
		{ID: 1, Name: "Primeiros Passos", Description: "Junte galhos e pedras perto do acampamento.",
			Objectives: []Objective{
				{Type: ObjectiveCollect, TargetID: ResourceStick, Quantity: 5},
				{Type: ObjectiveCollect, TargetID: ResourceStone, Quantity: 5},
			},
			Rewards: Rewards{Experience: 50, Coins: 20, Items: []RewardItem{{ItemTypeResource, ResourceBerries, 3}}}},
		{ID: 2, Name: "Caçador Iniciante", Description: "Cace dois veados.",
			Objectives: []Objective{{Type: ObjectiveKill, TargetID: ResourceDeer, Quantity: 2}},
			Rewards:    Rewards{Experience: 100, Coins: 50, Items: []RewardItem{{ItemTypeEquipment, EquipmentBoneKnife, 1}}}},
		{ID: 3, Name: "Explorador", Description: "Complete três expedições na floresta.",
			Objectives: []Objective{{Type: ObjectiveExpedition, TargetID: BiomeForest, Quantity: 3}},
			Rewards:    Rewards{Experience: 80, Coins: 30}},
		{ID: 4, Name: "Artesão", Description: "Fabrique um machado de pedra.",
			Objectives: []Objective{{Type: ObjectiveCraft, TargetID: EquipmentStoneAxe, Quantity: 1}},
			Rewards:    Rewards{Experience: 60, Coins: 25}},
		{ID: 5, Name: "Sobrevivente", Description: "Alcance o nível 3 e junte carne.", RequiredLevel: 2,
			Objectives: []Objective{
				{Type: ObjectiveLevel, Quantity: 3},
				{Type: ObjectiveCollect, TargetID: ResourceMeat, Quantity: 10},
			},
			Rewards: Rewards{Experience: 150, Coins: 100}},
		{ID: 6, Name: "Mestre Caçador", Description: "Derrube um urso.", RequiredLevel: 5,
			Objectives: []Objective{
				{Type: ObjectiveKill, TargetID: ResourceBear, Quantity: 1},
				{Type: ObjectiveCollect, TargetID: ResourceFur, Quantity: 5},
			},
			Rewards: Rewards{Experience: 300, Coins: 150, Items: []RewardItem{{ItemTypeEquipment, EquipmentVest, 1}}}},
		{ID: 7, Name: "Pescador", Description: "Pesque cinco peixes no rio.", RequiredLevel: 2,
			Objectives: []Objective{{Type: ObjectiveCollect, TargetID: ResourceFish, Quantity: 5}},
			Rewards:    Rewards{Experience: 90, Coins: 40}},
	}

	c := &Catalog{
		Resources: make(map[int]*Resource),
		Equipment: make(map[int]*Equipment),
		Biomes:    make(map[int]*Biome),
		Recipes:   make(map[int]*Recipe),
		Quests:    make(map[int]*Quest),
		AnimalYields: map[int][]Yield{
			ResourceRabbit: {{ResourceMeat, 1}, {ResourceFur, 1}, {ResourceBones, 1}},
			ResourceDeer:   {{ResourceMeat, 3}, {ResourceLeather, 2}, {ResourceBones, 4}, {ResourceFur, 1}},
			ResourceBear:   {{ResourceMeat, 8}, {ResourceLeather, 4}, {ResourceBones, 8}, {ResourceFur, 3}, {ResourceFat, 3}},
			ResourceBoar:   {{ResourceMeat, 4}, {ResourceLeather, 2}, {ResourceBones, 3}, {ResourceFat, 2}},
		},
	}
	for _, r := range resources {
		c.Resources[r.ID] = r
	}
	for _, e := range equipment {
		c.Equipment[e.ID] = e
	}
	for _, b := range biomes {
		c.Biomes[b.ID] = b
	}
	for _, r := range recipes {
		c.Recipes[r.ID] = r
	}
	for _, q := range quests {
		c.Quests[q.ID] = q
	}
	return c
}
