// Package tabular reads raw trip lists and writes annotated trip tables as
// CSV.
//
// Input headers are matched case- and accent-insensitively, in English
// (last_name, first_name, reference, origin, destination, train_type) or in
// the French column names of the extraction spreadsheets (Nom, Prénom,
// Référence, Départ, Destination, TrainType). Comma and semicolon separated
// files are both accepted.
package tabular
