package trip

import "fmt"

func destinationPrompt(req Request) string {
	return fmt.Sprintf(
		"Research %s as a travel destination, focusing on %s.\n\n"+
			"1. Find the top attractions and experiences related to the traveler's interests.\n"+
			"2. Describe the local culture, cuisine, and neighborhoods worth visiting.\n"+
			"3. Include practical tips (getting around, local customs, best areas to stay).\n"+
			"4. Include 2-3 relevant images embedded as markdown: ![Description](image_url)\n\n"+
			"Format the result as a markdown report with clear section headings.",
		req.Destination, req.Interests)
}

func destinationRetryPrompt(req Request) string {
	return fmt.Sprintf(
		"Create a simple report about %s related to %s. Include basic information and 1 image if possible.",
		req.Destination, req.Interests)
}

func eventsPrompt(req Request) string {
	return fmt.Sprintf(
		"Find events happening in %s during %s that match these interests: %s.\n\n"+
			"For each event include:\n"+
			"- Event name\n"+
			"- Date and time\n"+
			"- Venue or location\n"+
			"- Short description\n"+
			"- Ticket or entry information if available\n\n"+
			"Browse the event pages you discover rather than relying on search snippets. "+
			"Format the result as a markdown report. If you cannot find dated events, "+
			"describe recurring activities and seasonal happenings instead.",
		req.Destination, req.Dates, req.Interests)
}

func weatherPrompt(req Request) string {
	return fmt.Sprintf(
		"Check the weather forecast for %s during %s.\n\n"+
			"Report expected temperature ranges, precipitation, and typical seasonal "+
			"patterns for that period, and recommend what clothing to pack. "+
			"Format the result as a markdown report.",
		req.Destination, req.Dates)
}

func flightsPrompt(req Request) string {
	return fmt.Sprintf(
		"Search for flights from %s to %s for these dates: %s.\n\n"+
			"Present the top 3 options with prices, departure and arrival times, "+
			"airlines, and number of stops. Format the result as a markdown report.",
		req.Origin, req.Destination, req.Dates)
}

func synthesisPrompt(s *Session) string {
	return fmt.Sprintf(
		"Create a comprehensive travel plan for a trip from %s to %s during %s, "+
			"tailored to these interests: %s.\n\n"+
			"Combine the following reports into one cohesive markdown document with "+
			"clear sections for destination overview, events, weather, and flights. "+
			"Preserve all images and markdown formatting exactly as given.\n\n"+
			"DESTINATION REPORT:\n%s\n\n"+
			"EVENTS REPORT:\n%s\n\n"+
			"WEATHER REPORT:\n%s\n\n"+
			"FLIGHT REPORT:\n%s",
		s.Request.Origin, s.Request.Destination, s.Request.Dates, s.Request.Interests,
		s.DestinationReport, s.EventsReport, s.WeatherReport, s.FlightReport)
}
