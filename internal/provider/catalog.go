package provider

import "github.com/neexbeast/travel-aggregator/internal/travel"

var flightCatalog = []travel.Flight{
	{
		ID: "SKY001", Airline: "British Airways", FlightNumber: "BA286",
		Origin: "NYC", Destination: "London",
		DepartureDate: "2025-07-20", ArrivalDate: "2025-07-21",
		DepartureTime: "19:00", ArrivalTime: "07:00",
		Price: 650.00, Provider: "Skyscanner",
	},
	{
		ID: "SKY002", Airline: "Virgin Atlantic", FlightNumber: "VS001",
		Origin: "LAX", Destination: "London",
		DepartureDate: "2025-07-22", ArrivalDate: "2025-07-23",
		DepartureTime: "17:00", ArrivalTime: "10:00",
		Price: 720.50, Provider: "Skyscanner",
	},
	{
		ID: "SKY003", Airline: "Air France", FlightNumber: "AF100",
		Origin: "NYC", Destination: "Paris",
		DepartureDate: "2025-08-01", ArrivalDate: "2025-08-02",
		DepartureTime: "20:00", ArrivalTime: "08:00",
		Price: 580.00, Provider: "Skyscanner",
	},
}

var hotelCatalog = []travel.Hotel{
	{
		ID: "HBD001", Name: "The Grand London", Location: "London",
		CheckInDate: "2025-07-20", CheckOutDate: "2025-07-25",
		PricePerNight: 250.00, Rating: 4.7, Amenities: []string{"WiFi", "Spa"},
		Provider: "Hotelbeds",
	},
	{
		ID: "HBD002", Name: "Cozy Inn London", Location: "London",
		CheckInDate: "2025-07-21", CheckOutDate: "2025-07-24",
		PricePerNight: 120.00, Rating: 3.9, Amenities: []string{"Breakfast"},
		Provider: "Hotelbeds",
	},
	{
		ID: "HBD003", Name: "Hotel Belle Vue", Location: "Paris",
		CheckInDate: "2025-08-01", CheckOutDate: "2025-08-05",
		PricePerNight: 300.00, Rating: 4.9, Amenities: []string{"Restaurant", "Balcony"},
		Provider: "Hotelbeds",
	},
}

var activityCatalog = []travel.Activity{
	{
		ID: "VTR001", Name: "London Eye Ticket", Location: "London",
		Date: "2025-07-22", PricePerPerson: 35.00,
		Description: "Panoramic views of London from the iconic Ferris wheel.",
		Provider:    "Viator",
	},
	{
		ID: "VTR002", Name: "Tower of London Tour", Location: "London",
		Date: "2025-07-23", PricePerPerson: 30.00,
		Description: "Explore the historic Tower of London and Crown Jewels.",
		Provider:    "Viator",
	},
	{
		ID: "VTR003", Name: "Louvre Museum Skip-the-Line", Location: "Paris",
		Date: "2025-08-03", PricePerPerson: 60.00,
		Description: "Visit the world-famous Louvre Museum with priority access.",
		Provider:    "Viator",
	},
}
