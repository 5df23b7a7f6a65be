package entities

import "github.com/custodia-labs/medingest/internal/core/domain"

// term maps a canonical value to the regular expressions that match it.
// Patterns are matched case-insensitively on word boundaries.
type term struct {
	canonical string
	patterns  []string
}

var conditionTerms = []term{
	{"hypermobile Ehlers-Danlos Syndrome", []string{
		`hypermobile\s+EDS`, `hEDS`, `hypermobile\s+Ehlers[- ]Danlos(?:\s+syndrome)?`,
		`hypermobility[- ]type\s+(?:EDS|Ehlers[- ]Danlos(?:\s+syndrome)?)`,
	}},
	{"Ehlers-Danlos Syndrome", []string{`Ehlers[- ]Danlos(?:\s+syndrome)?`, `EDS`}},
	{"Postural Orthostatic Tachycardia Syndrome", []string{`POTS`, `postural\s+orthostatic\s+tachycardia(?:\s+syndrome)?`}},
	{"Mast Cell Activation Syndrome", []string{`MCAS`, `mast\s+cell\s+activation(?:\s+syndrome)?`}},
	{"Type 2 Diabetes Mellitus", []string{`type\s+(?:2|II)\s+diabetes(?:\s+mellitus)?`, `T2DM`, `diabetes\s+mellitus\s+type\s+(?:2|II)`}},
	{"Hypertension", []string{`hypertension`, `HTN`, `high\s+blood\s+pressure`}},
	{"Hypothyroidism", []string{`hypothyroidism`, `Hashimoto'?s(?:\s+thyroiditis)?`}},
	{"Iron Deficiency Anemia", []string{`iron\s+deficiency(?:\s+an(?:a)?emia)?`}},
	{"Migraine", []string{`migraines?`}},
	{"Fibromyalgia", []string{`fibromyalgia`}},
	{"Crohn's Disease", []string{`Crohn'?s(?:\s+disease)?`}},
	{"Asthma", []string{`asthma`}},
	{"Gastroparesis", []string{`gastroparesis`}},
	{"Chronic Fatigue Syndrome", []string{`ME/CFS`, `chronic\s+fatigue\s+syndrome`}},
	{"Major Depressive Disorder", []string{`major\s+depressive\s+disorder`, `MDD`, `depression`}},
	{"Generalized Anxiety Disorder", []string{`generali[sz]ed\s+anxiety\s+disorder`, `GAD`, `anxiety`}},
	{"Osteoarthritis", []string{`osteoarthritis`, `OA`}},
	{"Celiac Disease", []string{`c(?:o)?eliac(?:\s+disease)?`}},
}

var medicationTerms = []term{
	{"Metformin", []string{`metformin`, `glucophage`}},
	{"Lisinopril", []string{`lisinopril`}},
	{"Propranolol", []string{`propranolol`}},
	{"Metoprolol", []string{`metoprolol`}},
	{"Ivabradine", []string{`ivabradine`}},
	{"Fludrocortisone", []string{`fludrocortisone`, `florinef`}},
	{"Midodrine", []string{`midodrine`}},
	{"Cetirizine", []string{`cetirizine`, `zyrtec`}},
	{"Famotidine", []string{`famotidine`, `pepcid`}},
	{"Montelukast", []string{`montelukast`, `singulair`}},
	{"Ibuprofen", []string{`ibuprofen`, `advil`, `motrin`}},
	{"Naproxen", []string{`naproxen`, `aleve`}},
	{"Acetaminophen", []string{`acetaminophen`, `paracetamol`, `tylenol`}},
	{"Levothyroxine", []string{`levothyroxine`, `synthroid`}},
	{"Sertraline", []string{`sertraline`, `zoloft`}},
	{"Fluoxetine", []string{`fluoxetine`, `prozac`}},
	{"Duloxetine", []string{`duloxetine`, `cymbalta`}},
	{"Gabapentin", []string{`gabapentin`, `neurontin`}},
	{"Amitriptyline", []string{`amitriptyline`}},
	{"Prednisone", []string{`prednisone`}},
	{"Omeprazole", []string{`omeprazole`, `prilosec`}},
	{"Cromolyn Sodium", []string{`cromolyn(?:\s+sodium)?`}},
	{"Vitamin D", []string{`vitamin\s+D3?`, `cholecalciferol`}},
	{"Ferrous Sulfate", []string{`ferrous\s+sulfate`, `iron\s+supplements?`}},
	{"Insulin", []string{`insulin(?:\s+glargine)?`}},
}

var symptomTerms = []term{
	{"joint pain", []string{`joint\s+pain`, `arthralgias?`}},
	{"fatigue", []string{`fatigue`, `tiredness`}},
	{"dizziness", []string{`dizziness`, `lightheadedness`, `dizzy`}},
	{"syncope", []string{`syncope`, `fainting`}},
	{"palpitations", []string{`palpitations`}},
	{"tachycardia", []string{`tachycardia`}},
	{"nausea", []string{`nausea`}},
	{"headache", []string{`headaches?`}},
	{"brain fog", []string{`brain\s+fog`}},
	{"chest pain", []string{`chest\s+pain`}},
	{"shortness of breath", []string{`shortness\s+of\s+breath`, `SOB`, `dyspn(?:o)?ea`}},
	{"subluxations", []string{`subluxations?`, `dislocations?`}},
	{"easy bruising", []string{`easy\s+bruising`, `bruises\s+easily`}},
	{"insomnia", []string{`insomnia`}},
	{"abdominal pain", []string{`abdominal\s+pain`, `stomach\s+pain`}},
	{"rash", []string{`rash`, `hives`, `urticaria`}},
	{"fever", []string{`fever`}},
}

var procedureTerms = []term{
	{"MRI", []string{`MRI`, `magnetic\s+resonance\s+imaging`}},
	{"CT scan", []string{`CT(?:\s+scan)?`}},
	{"X-ray", []string{`x-?rays?`}},
	{"Echocardiogram", []string{`echocardiogram`, `echo`}},
	{"Tilt table test", []string{`tilt[- ]table(?:\s+test)?`}},
	{"Electrocardiogram", []string{`EKG`, `ECG`, `electrocardiogram`}},
	{"Colonoscopy", []string{`colonoscopy`}},
	{"Endoscopy", []string{`endoscopy`, `EGD`}},
	{"Ultrasound", []string{`ultrasound`}},
	{"Physical therapy", []string{`physical\s+therapy`, `PT`}},
}

// labTerms match a lab name followed by its value. The shared value
// suffix is appended when compiling.
var labTerms = []term{
	{"Ferritin", []string{`ferritin`}},
	{"Hemoglobin A1c", []string{`h(?:a)?emoglobin\s+A1c`, `HbA1c`, `A1c`}},
	{"Hemoglobin", []string{`h(?:a)?emoglobin`, `Hgb`, `Hb`}},
	{"TSH", []string{`TSH`}},
	{"Vitamin D, 25-Hydroxy", []string{`25-?(?:OH|hydroxy)\s+vitamin\s+D`, `vitamin\s+D\s+level`}},
	{"Glucose", []string{`(?:fasting\s+)?glucose`}},
	{"Creatinine", []string{`creatinine`}},
	{"LDL Cholesterol", []string{`LDL`}},
	{"HDL Cholesterol", []string{`HDL`}},
	{"Total Cholesterol", []string{`(?:total\s+)?cholesterol`}},
	{"Vitamin B12", []string{`(?:vitamin\s+)?B12`}},
	{"C-Reactive Protein", []string{`CRP`, `C-reactive\s+protein`}},
	{"Erythrocyte Sedimentation Rate", []string{`ESR`, `sed\s+rate`}},
	{"White Blood Cell Count", []string{`WBC`, `white\s+blood\s+cells?`}},
	{"Platelets", []string{`platelets?`, `PLT`}},
	{"Sodium", []string{`sodium`}},
	{"Potassium", []string{`potassium`}},
	{"Heart Rate", []string{`heart\s+rate`, `HR`}},
	{"Blood Pressure", []string{`blood\s+pressure`, `BP`}},
}

// baseConfidence is the score of a dictionary match without context cues.
var baseConfidence = map[domain.EntityType]float64{
	domain.EntityCondition:  0.6,
	domain.EntityMedication: 0.75,
	domain.EntitySymptom:    0.65,
	domain.EntityProcedure:  0.6,
	domain.EntityLabResult:  0.8,
	domain.EntityProvider:   0.8,
}
