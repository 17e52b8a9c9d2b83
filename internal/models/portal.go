package models

// NavLink is a single entry of the navigation bar.
type NavLink struct {
	Label string
	Href  string
}

// Feature is a service counter advertised on the landing page.
type Feature struct {
	Name        string
	Description string
	Icon        string
}

// Portal holds the static copy of the landing page sections.
type Portal struct {
	Brand       string
	NavLinks    []NavLink
	MobileLinks []NavLink

	HeroTitle   string
	HeroLead    string
	HeroImage   string
	FeatureHead string
	FeatureSub  string
	FeatureBody string
	Features    []Feature

	FooterOwner string
	FooterLinks []NavLink
}

// DefaultPortal returns the landing page copy of Mall Pelayanan Publik Kota Bengkulu.
func DefaultPortal() Portal {
	return Portal{
		Brand: "MyApp",
		NavLinks: []NavLink{
			{Label: "Home", Href: "#features"},
			{Label: "Tentang", Href: "#pricing"},
			{Label: "Antrian", Href: "#about"},
			{Label: "Testimoni", Href: "#contact"},
			{Label: "Fasilitas", Href: "#contact"},
		},
		MobileLinks: []NavLink{
			{Label: "Features", Href: "#features"},
			{Label: "Pricing", Href: "#pricing"},
			{Label: "About", Href: "#about"},
			{Label: "Contact", Href: "#contact"},
		},
		HeroTitle: "Mall pelayanan publik kota bengkulu",
		HeroLead: "Di sini kamu dapat menemukan berbagai layanan publik yang ada di " +
			"kota bengkulu, banyak hal yang bisa kamu lakukan di sini.",
		HeroImage:   "/static/img/kota-bengkulu.svg",
		FeatureHead: "MAL PELAYANAN PUBLIK",
		FeatureSub:  "HARAPAN DAN DO'A",
		FeatureBody: "Definisi Mal Pelayanan Publik menurut Peraturan Menteri Pendayagunaan Aparatur " +
			"Negara dan Reformasi Birokarasi Nomor 23 Tahun 2017 adalah tempat berlangsungnya " +
			"kegiatan atau aktivitas penyelenggaraan pelayanan publik atas barang, jasa dan/atau " +
			"pelayanan administrasi yang merupakan perluasan fungsi pelayanan terpadu baik pusat " +
			"maupun daerah serta pelayanan Badan Usaha Milik Negara /Badan usaha Milik Daerah dan " +
			"Swasta dalam rangka menyediakan pelayanan yang cepat, mudah, terjangkau, aman dan nyaman.",
		Features: []Feature{
			{
				Name:        "Samsat",
				Description: "Layanan administrasi untuk kendaraan bermotor, pajak, dan lainnya.",
				Icon:        "zap",
			},
			{
				Name:        "Dukcapil",
				Description: "Layanan administrasi kependudukan seperti KTP, KK, Akta Kelahiran, dan lainnya.",
				Icon:        "shield-check",
			},
			{
				Name:        "BPJS Kesehatan",
				Description: "Layanan pendaftaran dan informasi terkait BPJS Kesehatan.",
				Icon:        "cloud",
			},
		},
		FooterOwner: "My App",
		FooterLinks: []NavLink{
			{Label: "Privacy", Href: "#"},
			{Label: "Terms", Href: "#"},
			{Label: "Contact", Href: "#"},
		},
	}
}
