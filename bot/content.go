package bot

var climateFacts = []string{
	"**Melting glaciers are causing sea levels to rise.**",
	"**The average global temperature has increased by 1.2°C over the past 100 years.**",
	"**The Amazon Rainforest produces 20% of the world's oxygen.**",
	"**The 20 hottest years on record have occurred in the last 22 years.**",
	"**Global warming could cause sea levels to rise by 1 meter by the year 2100.**",
	"**Carbon dioxide (CO2) levels are at their highest in the past 800,000 years.**",
	"**Arctic sea ice has decreased by 40% over the past 30 years.**",
	"**Climate change could lead to the loss of 70-90% of coral reefs.**",
	"**80% of global energy consumption is derived from fossil fuels.**",
	"**Food production accounts for 25% of global greenhouse gas emissions.**",
	"**Climate change is causing ocean acidification, threatening marine life.**",
	"**Water sources are depleting in many parts of the world, and droughts are becoming more common.**",
	"**Rising global temperatures are causing extreme weather events to become more frequent and intense.**",
	"**High temperatures negatively impact food production, increasing the risk of famine.**",
	"**Rapid urbanization and deforestation threaten biodiversity and disrupt ecosystems.**",
	"**Rising sea levels are threatening communities living in coastal areas.**",
	"**Global greenhouse gas emissions are leading to worldwide health problems and diseases.**",
	"**Melting glaciers in terrestrial areas are causing sea levels to rise and freshwater sources to dwindle.**",
	"**Deforestation is increasing carbon dioxide emissions and destroying natural habitats.**",
	"**Changes in ocean currents are affecting global climate patterns, altering weather conditions.**",
	"**Methane levels in the atmosphere have significantly increased in recent years.**",
	"**Climate change is leading to the loss of habitats for animals and plants.**",
	"**Rising sea levels pose an existential threat to small island nations.**",
	"**Desertification is leading to a decrease in agricultural land worldwide.**",
	"**Oceans continue to warm as they absorb heat from human activities.**",
	"**30% of the world's forests have been lost in the past 100 years.**",
	"**Global warming is altering the migration patterns of animal species.**",
	"**High temperatures are causing an increase in the number and severity of wildfires.**",
	"**Warming seas are leading to a decline in fish stocks and changes in marine life.**",
	"**Climate change is making life even harder in impoverished regions.**",
}
