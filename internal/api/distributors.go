package api

// distributorNames maps licensor uuids to the distributor names shown in the
// published track rows. Unknown uuids pass through untouched.
var distributorNames = map[string]string{
	"ede63b46782e46e19045255f32c0ff0f": "The Orchard",
	"a830a34f35844bd784eac9a7fb395996": "TuneCore Inc.",
	"18fbcef4fb624fc58d4a7fdd230bd523": "PK Interactive / DistroKid",
	"c71b29ea9e1e48c6931da2dd7c0bf5d5": "Believe Digital",
	"b3865addfe5240778a7a8951c12c0d1f": "Queenstreet AB",
	"fe358ea987e2424d9021c2665a0667b7": "Universal Music Group",
	"2bdd92df315b492c9f4bb0ce407ce7de": "CD Baby",
	"8337a6aeaca744a7b32050f0c66e138f": "Warner Music Group",
	"354ace263824416299af258f868b43d3": "A-P Records AB",
	"0f26cfca536a4a69a2baed1eca0a42ec": "FUGA",
	"0a768a0fc630464d8862f7a2c6b0c9e6": "Kontor New Media GmbH",
	"4b67a8da63cd4496afa99dac7684a60e": "Virgin Music Group / InGrooves",
	"7cd978677487466fb9aea2f219ba290b": "iGroove Music",
	"aa9468539d19400ca4c32fdc159926a9": "Sony Music Entertainment",
	"5f22d400477342d0b01f880edf759e37": "Recordjet",
	"3f1980e65bb740b89118d2c5806d3c7d": "ONErpm",
	"e5627993ff8d48b59dfa9b39505640b5": "Routenote",
	"698e71b125a8476aa97aa411bb9b4fb9": "Empire Distribution",
	"749cfd5c7bef4bf48c5a6aec039bbbf6": "Symphonic Distribution",
	"af064b03a15e4224ab24764efe200841": "Label Engine / Create Music Group",
	"61984653554443c3be25691851563fdc": "Label Worx",
	"915f986857f94c6d8ede74191ebf61b1": "Stem Disintermedia",
	"8678e14e8edb48429cb2d2473190f2c0": "Amuseio AB",
	"60315a5bfaa04520a1ee142e2df5b8ca": "DashGo",
	"e0b063f7069449558ac1b5e967fb01bd": "Soundrop",
	"c22dde27ac4f4728bc49760041e721e1": "AudioSalad / Calm and Collected",
	"70d9c3ab1cfa4b21bd20dfa99d64f770": "Repost Network",
	"51dc0a60e30e4d8d9d8e8c6371b999d4": "Dance All Day",
	"ffb2c5e7bae04301b176bd7a5e3be782": "Foundation Media",
	"f5d6eac4fe7a4fd397ca040234f24af8": "Iricom / Digital Aggregator",
	"f4556f1e41604048bf9f93112ca6c6c2": "Too Lost LLC",
	"aa45cf37a7f84ddda54d7a4425b98ca7": "Ditto Music",
	"ba0100ab932e4f7a9d3a7c86ae1713be": "Zebralution GmbH",
	"388baa555ac649cf936c7a732cee4821": "IDOL",
	"9c290842b7fa4396bb0dcb3ad95634f5": "Vydia",
	"519ae781e9c4458abc4bf4dd5f6d682f": "Rebeat Music International",
	"9217c22e0a9b4309a83bcf0bab7e2133": "Kakao Entertainment",
	"82426856604c43119f24d75a3763616b": "Pias Recordings GmbH",
	"e1d17e83962c49a090db9ad45b1af50c": "Translation Enterprises",
	"349f8be8423c476c83a3ec82ca013c26": "DigDis",
	"7591e93c6cb94fc5b98f0098633b12a6": "BWSCD",
	"15a1c99b7fbf4183a3b9ffbeaf853b04": "GYROstream",
	"9eaaaf821a83431598b6cc2b19458621": "Record Union",
	"2917ec33ae924fe8829237b2c35e1182": "The state51 Conspiracy",
	"9edbdff2e31347e392b73eb3010e1a49": "The Orchard Enterprises",
	"eaa35594ac5c4e4b9e10416328c7ebad": "Platoon LTD",
	"699eb2804f044851a523b2163d30ae7b": "Armada Music",
	"d122f0de40ba48b0afbe884ebf9c2ce5": "Absolute Marketing",
	"25ac51b83b0e4e2aa594bf68b9043b20": "Altafonte",
	"28b43d83c8784f3b8e96925308bd580f": "Revelator Enterprises",
	"c69ceeaff4294b5e90a5acfab76b1a0c": "Aloaded",
	"240dc43954714226814bdbdeadd58c10": "Xelon",
	"2376b3370e074eac8348ef07dadff9c6": "Firefly Entertainment",
	"f00b045c5a4c44408dd4b329387bea42": "Emubands",
	"fb79b0911c0642f2b8c9c16066bd128f": "TuneCore Inc. (JP)",
	"88b2b704bfd1459ab86092726d035ce1": "Proton",
	"173930bf531e4d6f96db652cdb0a8e37": "Redeye",
	"b8d35f1fc67b46a9a9de3257484b4e9a": "Paradise Entertainment &",
	"9bbeeeb5938f4b3db01d02b7a1184f92": "LANDR",
	"9dc7168a4b42437397709f4aeecc375f": "Pschent Music",
	"ac0671a5a2764f2199f7b0ffa22c0616": "Venice Innovation",
	"90b881b00b9f4531876fd6817a1d7ef2": "Entertainment One",
	"cc6c2e9b77ea497aa2fbb91c3d97995e": "Nettwerk",
	"7cbd8bc71a55423d9df777bc3a694bbe": "BMG Rights Management",
	"29996865c5a24307a2e0a9c683546c2a": "Catfarm Music",
	"eb5b24ae2a9c49538ed984114c7871aa": "Independent Digital",
	"d95d7a04404645bea15a2498be46cd2d": "Epidemic Sound",
	"0b751d17bbbf466ea86a8c5ea4e7b7bb": "Republic Of Music",
	"d34d54b89e49450fa7780d44a4336059": "SongCast / Horizon Music",
	"75ce59b02e8f439bb9e0fc2d493c9994": "Daredo",
	"9bcf48eecf6d4651be1d7e2aa57ff18e": "Cygnus Music",
	"c4a9a916830a4d8b86c292abe6960201": "EPM Online",
	"c19e30d713b941c38b6b1ef573951934": "DMRS Ltd",
	"05047f7c0f1f42b28f5a7795de589080": "FUGA (Paraviral)",
	"c38dd86d46d44cf3b5ff2571c8127f0b": "AudioSalad",
	"b92f4e5a25da44d38dc6c8c4092159b2": "DashGo Inc",
	"4043fdd7a93d4c1da0114f2545283cf9": "Zebralution",
	"7f767f78b7a94b358fe5f6cd915bfa83": "StageOne Distribution",
	"fc63c3d0224e465aa3f3d88bb08138bc": "SpinUp",
	"b703fa47779b43f3a245f279e77b0539": "Luik Music",
	"cb80ac0caa75452e8e676f8baef7da6f": "8Ball Music",
	"80f69ae78f7c4fd68c865c7b2b5801c9": "Red P Music",
	"91137e7d85a64509bbd44e57b38f9d5c": "LABALABA",
	"0e1c00580b7c4c90a4cc4d558b953540": "Believe Distribution",
	"a4cf731ba1be47fe8ad85c5c2060107a": "On The Corner Music",
	"54ed9b19f56446d4a6d231cd2d701727": "KDigital Media Ltd",
	"670e733f9b074e9f92743aa60a60b872": "Believe Distribution Service",
	"69ae8c82bc384eb6bd11e1351f0fc02f": "MTrax",
	"4b994aa1bdf245b18796ad208cf5d69a": "Quest Management",
	"67714a8c229042c68617dc5e3f52f616": "SoundOn",
	"d3378295da4d4180bf1ba7b745f7c7ae": "eMuzyka",
	"dca8cd5a4e4e4cd8a12609a0b30bd52d": "Danmark Music Group",
	"76963aa0372f4512a21af55e3cc558fb": "Triple Vision Record Distribution",
	"f4012470fb184391a2133012fb792feb": "T-Series (Super Cassettes Industries Private Limited)",
	"eea73a63f2de40fd8d2351804a31f689": "Trap Party",
	"20cd4a77480b4fd4bb49d62dbbeeb60e": "Lujo Network",
	"b0a4cffd5c23499184d33d6581997d4c": "Agora Digital Music",
	"c4124deab2c64d3e9bb192e22a176a36": "Music Video Distributors Inc.",
}

// distributorName resolves a licensor uuid to its distributor name, keeping
// the uuid itself for distributors we have not catalogued yet.
func distributorName(uuid string) string {
	if name, ok := distributorNames[uuid]; ok {
		return name
	}
	return uuid
}
