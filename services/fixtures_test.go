package services

import "pharma-deck/providers"

var metforminWeight = 129.16

func metforminLabel() providers.Regulatory {
	return providers.Regulatory{
		ApprovalStatus:    "approved",
		ApprovalType:      "NDA",
		ApprovalDate:      "1995-03-03",
		ApplicationNumber: "NDA020357",
		SponsorName:       "Bristol-Myers Squibb",
		LabelURL:          "https://dailymed.nlm.nih.gov/dailymed/lookup.cfm?setid=abc",
		SourceVersion:     "12",
		Sections: []providers.LabelSection{
			{Section: "indications_and_usage", Text: "Metformin is indicated as an adjunct to diet and exercise to improve glycemic control in adults with type 2 diabetes mellitus."},
			{Section: "mechanism_of_action", Text: "Metformin is a biguanide that decreases hepatic glucose production."},
			{Section: "warnings_and_cautions", Text: "Lactic acidosis has been reported. Monitor renal function."},
			{Section: "pharmacokinetics", Text: "The plasma elimination half-life is 6.2 hours."},
			{Section: "drug_interactions", Text: "Cimetidine (a cationic drug) may increase metformin exposure."},
		},
	}
}

func metforminStructure() providers.Structure {
	return providers.Structure{
		CID:             "4091",
		Formula:         "C4H11N5",
		MolecularWeight: &metforminWeight,
		InChIKey:        "XZWYZXLIPXDOLR-UHFFFAOYSA-N",
		Profile:         map[string]any{"xlogp": -1.4},
	}
}

func metforminStudies() []providers.Study {
	return []providers.Study{
		{PMID: "1", Title: "Metformin meta-analysis", StudyType: "meta_analysis", Abstract: "Pooled data."},
		{PMID: "2", Title: "UKPDS", StudyType: "randomized_controlled_trial"},
		{PMID: "3", Title: "DPP", StudyType: "randomized_controlled_trial"},
	}
}
