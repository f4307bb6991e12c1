package workout

import (
	"sort"
	"strings"

	"github.com/tbaldin/ferro/internal/models"
)

// resistanceMuscles maps resistance exercise name keywords to the primary
// muscle group. Names arrive in Portuguese from the transcripts.
var resistanceMuscles = map[string]string{
	"remada":       "dorsais",
	"pulldown":     "dorsais",
	"puxada":       "dorsais",
	"barra fixa":   "dorsais",
	"terra":        "dorsais",
	"serrote":      "dorsais",
	"desenvolvimento": "ombros",
	"elevacao lateral": "ombros",
	"elevacao frontal": "ombros",
	"encolhimento": "trapezio",
	"rosca":        "biceps",
	"martelo":      "biceps",
	"scott":        "biceps",
	"triceps":      "triceps",
	"mergulho":     "triceps",
	"frances":      "triceps",
	"testa":        "triceps",
	"agachamento":  "quadriceps",
	"leg press":    "quadriceps",
	"extensora":    "quadriceps",
	"afundo":       "quadriceps",
	"passada":      "quadriceps",
	"bulgaro":      "quadriceps",
	"flexora":      "isquiotibiais",
	"stiff":        "isquiotibiais",
	"panturrilha":  "panturrilhas",
	"gemeo":        "panturrilhas",
	"abdominal":    "abdomen",
	"prancha":      "abdomen",
	"obliquo":      "abdomen",
	"crunch":       "abdomen",
	"supino":       "peitoral",
	"crucifixo":    "peitoral",
	"pullover":     "peitoral",
	"crossover":    "peitoral",
	"flexao":       "peitoral",
}

// aerobicMuscles maps aerobic exercise name keywords to the dominant system.
var aerobicMuscles = map[string]string{
	"corrida":   "cardiorespiratorio",
	"caminhada": "cardiorespiratorio",
	"trote":     "cardiorespiratorio",
	"esteira":   "cardiorespiratorio",
	"eliptico":  "cardiorespiratorio",
	"hiit":      "cardiorespiratorio",
	"zumba":     "cardiorespiratorio",
	"danca":     "cardiorespiratorio",
	"bicicleta": "quadriceps",
	"bike":      "quadriceps",
	"spinning":  "quadriceps",
	"ciclismo":  "quadriceps",
	"step":      "quadriceps",
	"escada":    "quadriceps",
	"subida":    "quadriceps",
	"natacao":   "corpo_todo",
	"piscina":   "corpo_todo",
	"remo":      "dorsais",
}

// aerobicEquipment maps aerobic keywords to the equipment or setting.
// Longer keywords are matched first so "corrida de rua" beats "corrida".
var aerobicEquipment = map[string]string{
	"corrida de rua":   "ambiente_externo",
	"caminhada de rua": "ambiente_externo",
	"na rua":           "ambiente_externo",
	"corrida":          "esteira",
	"caminhada":        "esteira",
	"trote":            "esteira",
	"esteira":          "esteira",
	"bicicleta":        "bike_ergometrica",
	"bike":             "bike_ergometrica",
	"spinning":         "bike_ergometrica",
	"ciclismo":         "bike_ergometrica",
	"natacao":          "piscina",
	"piscina":          "piscina",
	"remo":             "remo_ergometro",
	"eliptico":         "eliptico",
	"step":             "step",
	"escada":           "ambiente_externo",
	"subida":           "ambiente_externo",
	"zumba":            "atividade_livre",
	"danca":            "atividade_livre",
	"hiit":             "atividade_livre",
}

// resistanceEquipment maps explicit equipment keywords, checked in priority
// order so "halteres" wins over the generic machine fallback.
var resistanceEquipment = []struct {
	keyword   string
	equipment string
}{
	{"barra fixa", "peso corporal"},
	{"halteres", "halteres"},
	{"halter", "halteres"},
	{"dumbbell", "halteres"},
	{"kettlebell", "kettlebell"},
	{"elastico", "elastico"},
	{"cabo", "cabo"},
	{"polia", "cabo"},
	{"crossover", "cabo"},
	{"pulley", "cabo"},
	{"smith", "maquina"},
	{"hack", "maquina"},
	{"maquina", "maquina"},
	{"cadeira", "maquina"},
	{"leg press", "maquina"},
	{"flexao", "peso corporal"},
	{"mergulho", "peso corporal"},
	{"prancha", "peso corporal"},
	{"livre", "barra"},
	{"terra", "barra"},
	{"supino reto", "barra"},
	{"remada curvada", "barra"},
	{"encolhimento", "barra"},
}

// InferMuscleGroup guesses the primary muscle group for a catalog entry
// from its name. Falls back to a generic group when nothing matches.
func InferMuscleGroup(name, exerciseType string) string {
	lower := strings.ToLower(name)
	if exerciseType == models.TypeAerobic {
		if m := longestMatch(lower, aerobicMuscles); m != "" {
			return m
		}
		return "cardiorespiratorio"
	}
	if m := longestMatch(lower, resistanceMuscles); m != "" {
		return m
	}
	return "geral"
}

// InferEquipment guesses the equipment for a catalog entry from its name.
func InferEquipment(name, exerciseType string) string {
	lower := strings.ToLower(name)
	if exerciseType == models.TypeAerobic {
		if m := longestMatch(lower, aerobicEquipment); m != "" {
			return m
		}
		return "atividade_livre"
	}
	for _, entry := range resistanceEquipment {
		if strings.Contains(lower, entry.keyword) {
			return entry.equipment
		}
	}
	return "maquina"
}

// longestMatch returns the value of the longest keyword contained in name,
// so compound keywords beat their substrings.
func longestMatch(name string, table map[string]string) string {
	keys := make([]string, 0, len(table))
	for k := range table {
		if strings.Contains(name, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return table[keys[0]]
}
