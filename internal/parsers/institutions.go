package parsers

import "strings"

var (
	// Rows of the movements table header and running totals
	movementsTableSkips = []string{
		"detalle de operaciones",
		"saldo anterior",
		"saldo al",
		"total movimientos",
		"pagina",
		"concepto",
		"debito",
		"credito",
		"movimientos en cuentas",
		"saldo del periodo",
		"fecha",
	}

	lastThreeColumns = map[Field]int{
		FieldDate:        0,
		FieldDescription: 1,
		FieldDebit:       -3,
		FieldCredit:      -2,
		FieldBalance:     -1,
	}
)

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Institutions returns the supported institutions in detection priority
// order. Variants of an institution precede the institution itself.
func Institutions() []Descriptor {
	return []Descriptor{
		{
			ID:       "SUPERVIELLE_USD",
			Name:     "Banco Supervielle (USD)",
			Currency: "USD",
			Keywords: []string{"SUPERVIELLE USD", "SUPERVIELLE EN DOLARES"},
			Match: func(text, filename string) bool {
				all := text + " " + filename
				return strings.Contains(all, "SUPERVIELLE") && containsAny(all, "USD", "DOLARES")
			},
			Layout: Layout{
				Grid: GridLayout{Positions: lastThreeColumns},
				Line: LineLayout{Boundaries: true},
			},
		},
		{
			ID:       "SUPERVIELLE",
			Name:     "Banco Supervielle",
			Currency: "ARS",
			Keywords: []string{"BANCO SUPERVIELLE", "SUPERVIELLE", "CUENTA CORRIENTE EN U$S"},
			Layout: Layout{
				Line: LineLayout{Boundaries: true},
			},
		},
		{
			ID:       "GALICIA_MAS",
			Name:     "Banco Galicia Más",
			Currency: "ARS",
			Keywords: []string{"GALICIA MAS", "GALICIA MÁS", "CUENTA G+"},
			Match: func(text, filename string) bool {
				all := text + " " + filename
				return strings.Contains(all, "GALICIA") && containsAny(all, "GALICIA MAS", "CUENTA G+")
			},
			Layout: Layout{
				Line: LineLayout{SkipPatterns: movementsTableSkips},
			},
		},
		{
			ID:       "GALICIA",
			Name:     "Banco Galicia",
			Currency: "ARS",
			Keywords: []string{"BANCO GALICIA", "GALICIA", "OFFICE BANKING GALICIA"},
			Layout: Layout{
				Line: LineLayout{SkipPatterns: movementsTableSkips},
			},
		},
		{
			ID:       "ITAU",
			Name:     "Banco Itaú",
			Currency: "ARS",
			Keywords: []string{"BANCO ITAU", "ITAU"},
		},
		{
			ID:           "MACRO",
			Name:         "Banco Macro",
			Currency:     "ARS",
			Keywords:     []string{"BANCO MACRO", "MACRO", "FIDEICOMISO", "CUENTA CORRIENTE ESPECIAL"},
			PreferTables: true,
			Layout: Layout{
				Grid: GridLayout{Positions: lastThreeColumns},
				Line: LineLayout{SkipPatterns: []string{
					"ultimos movimientos",
					"caja de ahorro",
					"fecha de descarga",
					"operador:",
					"empresa:",
				}},
			},
		},
		{
			ID:       "COMAFI",
			Name:     "Banco Comafi",
			Currency: "ARS",
			Keywords: []string{"BANCO COMAFI", "COMAFI"},
			Layout: Layout{
				Line: LineLayout{Boundaries: true},
			},
		},
		{
			ID:       "BPN",
			Name:     "Banco Provincia del Neuquén",
			Currency: "ARS",
			Keywords: []string{"BANCO PROVINCIA DEL NEUQUEN", "BPN"},
		},
		{
			ID:       "RIOJA",
			Name:     "Banco Rioja",
			Currency: "ARS",
			Keywords: []string{"BANCO RIOJA"},
		},
		{
			ID:           "HIPOTECARIO",
			Name:         "Banco Hipotecario",
			Currency:     "ARS",
			Keywords:     []string{"BANCO HIPOTECARIO", "HIPOTECARIO"},
			PreferTables: true,
			Layout: Layout{
				Grid: GridLayout{Positions: lastThreeColumns},
			},
		},
		{
			ID:           "MERCADOPAGO",
			Name:         "Mercado Pago",
			Currency:     "ARS",
			Keywords:     []string{"MERCADO PAGO", "MERCADOPAGO"},
			PreferTables: true,
			Layout: Layout{
				Grid: GridLayout{Positions: lastThreeColumns},
				Line: LineLayout{SignedOnly: true},
			},
		},
		{
			ID:           "SANTANDER",
			Name:         "Banco Santander",
			Currency:     "ARS",
			Keywords:     []string{"SANTANDER"},
			PreferTables: true,
			Layout: Layout{
				Grid: GridLayout{Positions: map[Field]int{
					FieldDate:        0,
					FieldDescription: 2,
					FieldDebit:       3,
					FieldCredit:      4,
					FieldBalance:     5,
				}},
			},
		},
		{
			ID:       "NACION",
			Name:     "Banco de la Nación Argentina",
			Currency: "ARS",
			Keywords: []string{"BANCO DE LA NACION", "NACION", "SSI"},
		},
		{
			ID:       "PROVINCIA",
			Name:     "Banco Provincia",
			Currency: "ARS",
			Keywords: []string{"BANCO PROVINCIA", "BANCO DE LA PROVINCIA DE BUENOS AIRES"},
			Layout: Layout{
				Grid: GridLayout{
					Amounts: SignedAmount,
					Positions: map[Field]int{
						FieldDate:        0,
						FieldDescription: 1,
						FieldAmount:      2,
						FieldBalance:     -1,
					},
				},
				Line: LineLayout{
					SignedOnly: true,
					SkipPatterns: []string{
						"extracto de cuenta",
						"banco provincia",
						"emitido el",
						"frecuencia",
						"hoja",
						"cbu:",
						"total retencion",
					},
				},
			},
		},
		{
			ID:       "SAN_JUAN",
			Name:     "Banco San Juan",
			Currency: "ARS",
			Keywords: []string{"BANCO SAN JUAN"},
			Layout: Layout{
				Grid: GridLayout{Positions: map[Field]int{
					FieldDate:        0,
					FieldDescription: 1,
					FieldDebit:       2,
					FieldCredit:      3,
					FieldBalance:     4,
				}},
			},
		},
		{
			ID:       "PATAGONIA",
			Name:     "Banco Patagonia",
			Currency: "ARS",
			Keywords: []string{"BANCO PATAGONIA", "PATAGONIA EBANK", "ESTADO DE CUENTAS UNIFICADO"},
			Layout: Layout{
				Line: LineLayout{Boundaries: true},
			},
		},
		{
			ID:       "BBVA",
			Name:     "BBVA Argentina",
			Currency: "ARS",
			Keywords: []string{"BBVA"},
			Layout: Layout{
				Line: LineLayout{SkipPatterns: movementsTableSkips},
			},
		},
		{
			ID:       "ICBC",
			Name:     "ICBC Argentina",
			Currency: "ARS",
			Keywords: []string{"ICBC", "INDUSTRIAL AND COMMERCIAL BANK OF CHINA (ARGENTINA)"},
			Layout: Layout{
				Line: LineLayout{Boundaries: true},
			},
		},
		{
			ID:       "CIUDAD",
			Name:     "Banco Ciudad",
			Currency: "ARS",
			Keywords: []string{"BANCO CIUDAD", "BANCO DE LA CIUDAD"},
		},
		{
			ID:       "CREDICOOP",
			Name:     "Banco Credicoop",
			Currency: "ARS",
			Keywords: []string{"CREDICOOP"},
		},
		{
			ID:       "HSBC",
			Name:     "HSBC Argentina",
			Currency: "ARS",
			Keywords: []string{"HSBC", "HSBC ARGENTINA", "HSBC BANK"},
		},
		genericDescriptor(),
	}
}

func genericDescriptor() Descriptor {
	return Descriptor{
		ID:       GenericID,
		Name:     "Generic statement",
		Currency: "ARS",
		Layout: Layout{
			Line: LineLayout{Sections: true},
		},
	}
}
