// Command hlsladder converts videos into adaptive bitrate HLS ladders and
// serves their manifests.
//
//	hlsladder plan /media/movie.mkv
//	hlsladder convert movie-42 /media/movie.mkv
//	hlsladder attach-subtitles movie-42 en=subtitles/en.vtt
//	hlsladder serve
package main
