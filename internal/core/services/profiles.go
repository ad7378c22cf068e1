package services

// Seasonal climate profiles for a set of reference cities, one entry per
// calendar month (January first). Values are rough long-term averages in
// degrees Celsius, percent humidity, m/s wind, and percent precipitation
// chance. Places without a profile use the temperate default rather than
// failing.
var seasonalProfiles = map[string][12]monthlyProfile{
	"london": {
		{2, 8, "Overcast", "04d", 85, 4.5, 45}, {2, 9, "Light rain", "10d", 82, 4.5, 40},
		{4, 12, "Partly cloudy", "03d", 78, 4.2, 38}, {6, 15, "Partly cloudy", "03d", 73, 4.0, 35},
		{9, 18, "Partly cloudy", "03d", 70, 3.8, 32}, {12, 21, "Mostly sunny", "02d", 68, 3.6, 30},
		{14, 23, "Mostly sunny", "02d", 67, 3.5, 28}, {14, 23, "Partly cloudy", "03d", 69, 3.5, 30},
		{11, 20, "Partly cloudy", "03d", 73, 3.8, 32}, {8, 15, "Light rain", "10d", 79, 4.1, 38},
		{5, 11, "Overcast", "04d", 84, 4.4, 42}, {3, 8, "Overcast", "04d", 86, 4.5, 44},
	},
	"paris": {
		{1, 7, "Overcast", "04d", 84, 4.0, 40}, {1, 9, "Partly cloudy", "03d", 79, 4.0, 36},
		{4, 13, "Partly cloudy", "03d", 73, 3.9, 34}, {6, 16, "Partly cloudy", "03d", 68, 3.7, 32},
		{10, 20, "Mostly sunny", "02d", 67, 3.5, 30}, {13, 23, "Mostly sunny", "02d", 65, 3.3, 28},
		{15, 26, "Sunny", "01d", 62, 3.2, 24}, {15, 26, "Sunny", "01d", 63, 3.1, 26},
		{12, 22, "Partly cloudy", "03d", 68, 3.4, 28}, {8, 16, "Light rain", "10d", 76, 3.7, 34},
		{4, 11, "Overcast", "04d", 82, 3.9, 38}, {2, 8, "Overcast", "04d", 85, 4.0, 40},
	},
	"new york": {
		{-3, 4, "Snow", "13d", 62, 5.2, 34}, {-2, 6, "Snow", "13d", 60, 5.2, 32},
		{2, 11, "Partly cloudy", "03d", 58, 5.0, 34}, {7, 17, "Partly cloudy", "03d", 57, 4.7, 34},
		{12, 22, "Mostly sunny", "02d", 61, 4.3, 34}, {18, 27, "Mostly sunny", "02d", 64, 4.0, 32},
		{21, 30, "Sunny", "01d", 65, 3.8, 32}, {20, 29, "Sunny", "01d", 66, 3.8, 32},
		{16, 25, "Mostly sunny", "02d", 66, 4.0, 30}, {10, 18, "Partly cloudy", "03d", 64, 4.4, 30},
		{5, 12, "Overcast", "04d", 63, 4.9, 32}, {0, 7, "Snow", "13d", 63, 5.1, 34},
	},
	"tokyo": {
		{1, 10, "Sunny", "01d", 52, 3.4, 18}, {2, 10, "Sunny", "01d", 53, 3.6, 22},
		{5, 14, "Partly cloudy", "03d", 56, 3.9, 30}, {10, 19, "Partly cloudy", "03d", 62, 3.9, 34},
		{15, 23, "Partly cloudy", "03d", 69, 3.7, 34}, {19, 26, "Rain", "10d", 76, 3.5, 44},
		{23, 30, "Rain", "10d", 77, 3.4, 38}, {24, 31, "Mostly sunny", "02d", 73, 3.4, 34},
		{21, 27, "Rain", "10d", 75, 3.5, 44}, {15, 22, "Partly cloudy", "03d", 68, 3.4, 36},
		{9, 17, "Mostly sunny", "02d", 62, 3.3, 24}, {4, 12, "Sunny", "01d", 56, 3.3, 16},
	},
	"rome": {
		{3, 12, "Partly cloudy", "03d", 77, 3.2, 30}, {4, 13, "Partly cloudy", "03d", 73, 3.3, 28},
		{6, 16, "Mostly sunny", "02d", 70, 3.4, 26}, {8, 19, "Mostly sunny", "02d", 68, 3.3, 26},
		{12, 23, "Sunny", "01d", 66, 3.1, 20}, {16, 28, "Sunny", "01d", 62, 3.0, 14},
		{18, 31, "Sunny", "01d", 58, 3.0, 8}, {19, 31, "Sunny", "01d", 59, 2.9, 10},
		{16, 27, "Mostly sunny", "02d", 65, 3.0, 18}, {12, 22, "Partly cloudy", "03d", 72, 3.1, 28},
		{7, 16, "Rain", "10d", 78, 3.3, 34}, {4, 13, "Rain", "10d", 79, 3.3, 32},
	},
	"sydney": {
		{19, 27, "Sunny", "01d", 65, 4.6, 30}, {19, 26, "Mostly sunny", "02d", 68, 4.4, 32},
		{17, 25, "Mostly sunny", "02d", 67, 4.2, 32}, {14, 23, "Mostly sunny", "02d", 64, 4.0, 28},
		{11, 20, "Partly cloudy", "03d", 63, 4.0, 26}, {9, 17, "Partly cloudy", "03d", 62, 4.1, 30},
		{8, 17, "Mostly sunny", "02d", 59, 4.2, 24}, {9, 18, "Sunny", "01d", 55, 4.5, 22},
		{11, 20, "Sunny", "01d", 56, 4.7, 22}, {14, 22, "Mostly sunny", "02d", 59, 4.8, 26},
		{16, 24, "Partly cloudy", "03d", 62, 4.7, 28}, {18, 26, "Sunny", "01d", 63, 4.6, 28},
	},
	"dubai": {
		{14, 24, "Sunny", "01d", 60, 3.6, 6}, {15, 26, "Sunny", "01d", 58, 3.8, 6},
		{18, 29, "Sunny", "01d", 55, 3.9, 6}, {21, 33, "Sunny", "01d", 50, 3.8, 4},
		{25, 38, "Sunny", "01d", 45, 3.7, 1}, {27, 40, "Sunny", "01d", 48, 3.6, 0},
		{30, 41, "Sunny", "01d", 50, 3.6, 0}, {30, 41, "Sunny", "01d", 52, 3.5, 0},
		{27, 39, "Sunny", "01d", 55, 3.3, 0}, {23, 35, "Sunny", "01d", 56, 3.2, 0},
		{19, 30, "Sunny", "01d", 58, 3.3, 1}, {16, 26, "Sunny", "01d", 60, 3.5, 4},
	},
	"reykjavik": {
		{-3, 2, "Snow", "13d", 78, 6.8, 40}, {-2, 3, "Snow", "13d", 77, 6.7, 38},
		{-2, 3, "Snow", "13d", 76, 6.5, 38}, {1, 6, "Overcast", "04d", 74, 6.0, 34},
		{4, 9, "Partly cloudy", "03d", 73, 5.5, 30}, {7, 12, "Partly cloudy", "03d", 74, 5.1, 28},
		{9, 14, "Partly cloudy", "03d", 76, 4.9, 28}, {8, 13, "Overcast", "04d", 77, 5.0, 30},
		{6, 10, "Overcast", "04d", 78, 5.5, 34}, {2, 7, "Light rain", "10d", 78, 6.1, 38},
		{-1, 4, "Overcast", "04d", 78, 6.5, 38}, {-2, 2, "Snow", "13d", 78, 6.8, 40},
	},
}

// defaultProfile is the canonical temperate reference used for places with
// no profile of their own.
var defaultProfile = [12]monthlyProfile{
	{0, 7, "Overcast", "04d", 78, 4.0, 36}, {1, 8, "Partly cloudy", "03d", 75, 4.0, 34},
	{3, 12, "Partly cloudy", "03d", 71, 3.9, 32}, {6, 16, "Partly cloudy", "03d", 67, 3.7, 32},
	{10, 20, "Mostly sunny", "02d", 65, 3.5, 30}, {14, 24, "Mostly sunny", "02d", 63, 3.3, 28},
	{16, 26, "Sunny", "01d", 61, 3.2, 26}, {16, 26, "Sunny", "01d", 62, 3.2, 26},
	{12, 22, "Mostly sunny", "02d", 66, 3.4, 28}, {8, 16, "Partly cloudy", "03d", 72, 3.6, 32},
	{4, 11, "Light rain", "10d", 76, 3.9, 36}, {1, 8, "Overcast", "04d", 78, 4.0, 36},
}

// profileFor looks up the seasonal profile for a place, reporting whether
// the place was known.
func profileFor(place string) ([12]monthlyProfile, bool) {
	if profile, ok := seasonalProfiles[canonicalPlaceKey(place)]; ok {
		return profile, true
	}

	return defaultProfile, false
}
